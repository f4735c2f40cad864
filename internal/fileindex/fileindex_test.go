package fileindex

import (
	"os"
	"path/filepath"
	"testing"
)

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"a/Track1.mp3", "b/Track2.flac", "c/notaudio.txt"} {
		full := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestBuildIndexesRecognisedExtensionsOnly(t *testing.T) {
	root := makeTree(t)
	idx, err := Build(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}
	if idx.Lookup("track1.mp3") == "" {
		t.Fatal("expected lookup to find track1.mp3")
	}
	if idx.Lookup("notaudio.txt") != "" {
		t.Fatal("non-audio file should not be indexed")
	}
}

func TestBuildFailsOnMissingRoot(t *testing.T) {
	if _, err := Build("/does/not/exist/ever", 0); err == nil {
		t.Fatal("expected ErrUnusable")
	}
}

func TestDeterministicAcrossBuilds(t *testing.T) {
	root := makeTree(t)
	a, err := Build(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != b.Len() {
		t.Fatalf("non-deterministic build: %d vs %d entries", a.Len(), b.Len())
	}
	if a.Lookup("track1.mp3") != b.Lookup("track1.mp3") {
		t.Fatal("non-deterministic lookup result")
	}
}

func TestBuildBoundsEntriesToCapacity(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"x.mp3", "y.mp3", "z.mp3"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	idx, err := Build(root, 2)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected bounded length 2, got %d", idx.Len())
	}
}
