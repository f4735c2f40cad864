package pathsafe

import (
	"strings"
	"testing"
)

func TestBasenameStripsAccents(t *testing.T) {
	got, err := Basename("Café.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Cafe.mp3" {
		t.Fatalf("got %q, want Cafe.mp3", got)
	}
}

func TestBasenameReplacesReservedChars(t *testing.T) {
	got, err := Basename(`A/B\C:D.mp3`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsAny(got, `/\:`) {
		t.Fatalf("got %q, still contains reserved chars", got)
	}
}

func TestBasenameCollapsesUnderscoreRuns(t *testing.T) {
	got, err := Basename("A///B.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "__") {
		t.Fatalf("got %q, expected collapsed underscores", got)
	}
}

func TestBasenameSuffixesReservedName(t *testing.T) {
	got, err := Basename("CON.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "CON_.mp3" {
		t.Fatalf("got %q, want CON_.mp3", got)
	}
}

func TestBasenameTruncatesPreservingExtension(t *testing.T) {
	long := strings.Repeat("a", 300) + ".mp3"
	got, err := Basename(long)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 200 {
		t.Fatalf("basename too long: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, ".mp3") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestBasenameFailsOnEmptyAfterSanitisation(t *testing.T) {
	_, err := Basename("日本語")
	if err == nil {
		t.Fatal("expected ErrUnrepresentable")
	}
}

func TestFullPathShortensToFit(t *testing.T) {
	dir := "/" + strings.Repeat("d", 200)
	long := strings.Repeat("a", 100) + ".mp3"
	got, err := FullPath(dir, long)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 256 {
		t.Fatalf("path too long: %d bytes: %q", len(got), got)
	}
	if !strings.HasSuffix(got, ".mp3") {
		t.Fatalf("extension lost: %q", got)
	}
}
