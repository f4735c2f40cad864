package sourcexml

import (
	"context"
	"strings"
	"testing"
)

const wellFormedDoc = `<?xml version="1.0" encoding="UTF-8"?>
<NML VERSION="20">
  <COLLECTION ENTRIES="2">
    <ENTRY ARTIST="Artist One" TITLE="Track One" MODIFIED_DATE="2024/3/1">
      <LOCATION DIR="/:Users/:dj/:Music/:" FILE="one.mp3" VOLUME="C:"/>
      <ALBUM TITLE="Album One"/>
      <INFO BITRATE="320" GENRE="House" RANKING="153" PLAYTIME="240" FILESIZE="9600000"/>
      <TEMPO BPM="128.0"/>
      <MUSICAL_KEY VALUE="7"/>
      <CUE_V2 NAME="Drop" TYPE="0" START="1000" LEN="0" HOTCUE="0" RED="255" GREEN="0" BLUE="0"/>
      <CUE_V2 NAME="Grid" TYPE="4" START="50" LEN="0" HOTCUE="-1"/>
    </ENTRY>
    <ENTRY ARTIST="Artist Two" TITLE="Track Two">
      <LOCATION DIR="/:Users/:dj/:Music/:" FILE="two.mp3" VOLUME="C:"/>
      <ALBUM TITLE=""/>
      <INFO BITRATE="320" GENRE="Techno" RANKING="255" PLAYTIME="300" FILESIZE="12000000"/>
      <TEMPO BPM="0"/>
    </ENTRY>
  </COLLECTION>
  <PLAYLISTS>
    <NODE TYPE="FOLDER" NAME="$ROOT">
      <SUBNODES COUNT="1">
        <NODE TYPE="PLAYLIST" NAME="My List">
          <PLAYLIST ENTRIES="2" TYPE="LIST">
            <ENTRY>
              <PRIMARYKEY TYPE="TRACK" KEY="C:/:Users/:dj/:Music/:one.mp3"/>
            </ENTRY>
            <ENTRY>
              <PRIMARYKEY TYPE="TRACK" KEY="C:/:Users/:dj/:Music/:missing.mp3"/>
            </ENTRY>
          </PLAYLIST>
        </NODE>
      </SUBNODES>
    </NODE>
  </PLAYLISTS>
</NML>`

func TestParseWellFormedDocument(t *testing.T) {
	col, issues, err := Parse(context.Background(), strings.NewReader(wellFormedDoc), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(col.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(col.Tracks))
	}

	found := false
	for _, tr := range col.Tracks {
		if tr.Title == "Track One" {
			found = true
			if tr.BPM != 128.0 {
				t.Fatalf("expected BPM 128, got %f", tr.BPM)
			}
			if !tr.HasKeyIndex || tr.KeyIndex != 7 {
				t.Fatalf("expected key index 7, got %d (has=%v)", tr.KeyIndex, tr.HasKeyIndex)
			}
			if tr.Rating != 3 {
				t.Fatalf("expected rating bucket 3 for raw 153, got %d", tr.Rating)
			}
			if len(tr.Cues) != 2 {
				t.Fatalf("expected 2 cues, got %d", len(tr.Cues))
			}
			if !tr.HasGridAnchor {
				t.Fatal("expected grid anchor to be detected")
			}
		}
	}
	if !found {
		t.Fatal("Track One not found in parsed collection")
	}

	if len(col.Roots) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(col.Roots))
	}
	playlist := col.Roots[0]
	if len(playlist.TrackFingerprints) != 1 {
		t.Fatalf("expected 1 resolved playlist entry, got %d", len(playlist.TrackFingerprints))
	}

	foundUnresolved := false
	for _, issue := range issues {
		if issue.Kind == IssueUnresolvedReference {
			foundUnresolved = true
		}
	}
	if !foundUnresolved {
		t.Fatal("expected an IssueUnresolvedReference for the missing playlist entry")
	}
}

const docWithOneMalformedEntry = `<?xml version="1.0"?>
<NML VERSION="20">
  <COLLECTION ENTRIES="2">
    <ENTRY ARTIST="Good" TITLE="Good Track">
      <LOCATION DIR="/:Music/:" FILE="good.mp3" VOLUME="C:"/>
      <INFO FILESIZE="100"/>
      <TEMPO BPM="120"/>
    </ENTRY>
    <ENTRY ARTIST="Bad" TITLE="Bad Track" BROKEN=unterminated-attr>
      <LOCATION DIR="/:Music/:" FILE="bad.mp3" VOLUME="C:"/>
    </ENTRY>
  </COLLECTION>
</NML>`

func TestParseToleratesOneMalformedEntry(t *testing.T) {
	col, issues, err := Parse(context.Background(), strings.NewReader(docWithOneMalformedEntry), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(col.Tracks) != 1 {
		t.Fatalf("expected the good entry to survive, got %d tracks", len(col.Tracks))
	}

	sawMalformed := false
	for _, issue := range issues {
		if issue.Kind == IssueEntryMalformed {
			sawMalformed = true
		}
	}
	if !sawMalformed {
		t.Fatal("expected an IssueEntryMalformed for the broken entry")
	}
}

const docAllEntriesMalformed = `<?xml version="1.0"?>
<NML VERSION="20">
  <COLLECTION ENTRIES="1">
    <ENTRY ARTIST="Bad" BROKEN=unterminated>
      <LOCATION DIR="/:Music/:" FILE="bad.mp3" VOLUME="C:"/>
    </ENTRY>
  </COLLECTION>
</NML>`

func TestParseReturnsUnparseableWhenNoEntrySurvives(t *testing.T) {
	_, _, err := Parse(context.Background(), strings.NewReader(docAllEntriesMalformed), Options{})
	if err == nil {
		t.Fatal("expected an error when every entry fails to parse")
	}
}

func TestParseDetectsVersionForCueColourGating(t *testing.T) {
	col, _, err := Parse(context.Background(), strings.NewReader(wellFormedDoc), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tr := range col.Tracks {
		if tr.Title != "Track One" {
			continue
		}
		for _, c := range tr.Cues {
			if c.Name == "Drop" && !c.HasColor {
				t.Fatal("expected version 20 to carry cue colour")
			}
		}
	}
}
