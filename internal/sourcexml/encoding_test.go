package sourcexml

import "testing"

func TestDetectEncodingStripsUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<NML/>")...)
	out, bom, undetermined := detectEncoding(data)
	if !bom {
		t.Fatal("expected BOM to be detected")
	}
	if undetermined {
		t.Fatal("did not expect undetermined with a valid BOM")
	}
	if string(out) != "<NML/>" {
		t.Fatalf("expected BOM stripped, got %q", out)
	}
}

func TestDetectEncodingPlainUTF8IsDetermined(t *testing.T) {
	_, bom, undetermined := detectEncoding([]byte(`<NML VERSION="20"><COLLECTION/></NML>`))
	if bom {
		t.Fatal("did not expect a BOM")
	}
	if undetermined {
		t.Fatal("well-formed ASCII/UTF-8 should not be undetermined")
	}
}

func TestDetectEncodingGarbageIsUndetermined(t *testing.T) {
	garbage := make([]byte, 64)
	for i := range garbage {
		garbage[i] = byte(0x80 + i%0x40) // lone continuation bytes, never valid lead bytes
	}
	_, _, undetermined := detectEncoding(garbage)
	if !undetermined {
		t.Fatal("expected a run of lone continuation bytes to be undetermined")
	}
}

func TestPreCleanStripsControlCharsAndEscapesStrayAmpersand(t *testing.T) {
	in := []byte("A\x00B & C &amp; D &#65; E")
	out := preClean(in)
	want := "AB &amp; C &amp; D &#65; E"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
