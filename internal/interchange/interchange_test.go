package interchange

import (
	"strings"
	"testing"
	"time"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/keys"
)

func sampleTrack(fp string) *collection.Track {
	return &collection.Track{
		Fingerprint: fp,
		Title:       "A",
		Artist:      "B",
		Album:       "C",
		Path:        "/music/a b.mp3",
		DurationSec: 180,
		BPM:         128,
		HasKeyIndex: true,
		KeyIndex:    7,
		Rating:      3,
		DateAdded:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Cues: []collection.CuePoint{
			{Name: "drop", HotCueSlot: 0, StartMs: 1000},
			{Name: "loop", HotCueSlot: 1, StartMs: 2000, LengthMs: 4000},
		},
	}
}

func TestBuildHasNoBOMAndStartsWithXMLDeclaration(t *testing.T) {
	out, err := Build([]*collection.Track{sampleTrack("fp1")}, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(out) >= 3 && out[0] == 0xEF && out[1] == 0xBB && out[2] == 0xBF {
		t.Fatal("output has a BOM")
	}
	if !strings.HasPrefix(string(out), `<?xml version="1.0"`) {
		t.Fatalf("output does not start with an XML declaration: %.50s", out)
	}
}

func TestBuildCollectionEntriesMatchesTrackCount(t *testing.T) {
	out, err := Build([]*collection.Track{sampleTrack("fp1"), sampleTrack("fp2")}, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(string(out), `Entries="2"`) {
		t.Fatalf("expected Entries=\"2\" in output:\n%s", out)
	}
}

func TestBuildCueTypeIsZeroForPlainAndFourForLoop(t *testing.T) {
	out, err := Build([]*collection.Track{sampleTrack("fp1")}, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `Type="0"`) {
		t.Fatal("expected a Type=\"0\" plain cue")
	}
	if !strings.Contains(s, `Type="4"`) {
		t.Fatal("expected a Type=\"4\" loop cue")
	}
}

func TestBuildAverageBpmHasTwoDecimals(t *testing.T) {
	out, err := Build([]*collection.Track{sampleTrack("fp1")}, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(string(out), `AverageBpm="128.00"`) {
		t.Fatalf("expected AverageBpm=\"128.00\" in output:\n%s", out)
	}
}

func TestBuildLocationIsURLEncodedFileLocalhost(t *testing.T) {
	out, err := Build([]*collection.Track{sampleTrack("fp1")}, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(string(out), "file://localhost/music/a%20b.mp3") {
		t.Fatalf("expected URL-encoded space in location:\n%s", out)
	}
}

func TestBuildTonalityRespectsKeyNotationOption(t *testing.T) {
	out, err := Build([]*collection.Track{sampleTrack("fp1")}, nil, Options{KeyNotation: keys.FormatClassical})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(string(out), `Tonality="Am"`) {
		t.Fatalf("expected classical tonality Am in output:\n%s", out)
	}
}

func TestBuildFolderAndPlaylistNodeTypesAndCounts(t *testing.T) {
	playlist := collection.NewNode(collection.NodeKindPlaylist, "Favorites")
	playlist.TrackFingerprints = []string{"fp1"}
	folder := collection.NewNode(collection.NodeKindFolder, "Sets")
	folder.Children = []*collection.Node{playlist}

	out, err := Build([]*collection.Track{sampleTrack("fp1")}, []*collection.Node{folder}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `Type="0"`) || !strings.Contains(s, `Name="Sets"`) {
		t.Fatal("expected a Type=0 folder node named Sets")
	}
	if !strings.Contains(s, `Name="Favorites"`) || !strings.Contains(s, `Entries="1"`) {
		t.Fatal("expected a playlist node named Favorites with Entries=1")
	}
}
