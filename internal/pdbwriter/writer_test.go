package pdbwriter

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/algiers/cratebridge/internal/collection"
)

func sampleTrack(fp, title, artist string) *collection.Track {
	return &collection.Track{
		Fingerprint: fp,
		Title:       title,
		Artist:      artist,
		Album:       "Album " + title,
		Genre:       "House",
		Path:        "/music/" + title + ".mp3",
		FileSize:    1234,
		SampleRate:  44100,
		BitrateKbps: 320,
		DurationSec: 300,
		BPM:         128,
		HasKeyIndex: true,
		KeyIndex:    7, // 8A
		Rating:      3,
		DateAdded:   time.Unix(1700000000, 0),
		ColorTag:    2,
	}
}

func TestBuildEmitsValidHeader(t *testing.T) {
	in := Input{Tracks: []*collection.Track{
		sampleTrack("fp1", "First", "Alice"),
		sampleTrack("fp2", "Second", "Bob"),
	}}
	data, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(data) < fileHeaderLen {
		t.Fatalf("output too short: %d bytes", len(data))
	}

	pageLen := binary.LittleEndian.Uint32(data[4:8])
	if pageLen != DefaultPageLen {
		t.Fatalf("page_len = %d, want %d", pageLen, DefaultPageLen)
	}
	numTables := binary.LittleEndian.Uint32(data[8:12])
	if numTables != 9 {
		t.Fatalf("num_tables = %d, want 9", numTables)
	}
	nextUnused := binary.LittleEndian.Uint32(data[12:16])

	dirLen := int(numTables) * 8
	totalPages := (len(data) - fileHeaderLen - dirLen) / int(pageLen)
	if int(nextUnused) != totalPages+1 {
		t.Fatalf("next_unused_page = %d, want %d (greater than any emitted page index)", nextUnused, totalPages+1)
	}
}

func TestBuildRejectsCollectionAboveTrackCeiling(t *testing.T) {
	tracks := make([]*collection.Track, MaxTracks+1)
	for i := range tracks {
		tracks[i] = &collection.Track{Fingerprint: string(rune(i))}
	}
	_, err := Build(Input{Tracks: tracks})
	if err == nil {
		t.Fatal("expected ErrCollectionTooLarge")
	}
}

func TestBuildSharesReferenceIdsForRepeatedArtist(t *testing.T) {
	artists := newRefTable(KindArtists)
	a := artists.idFor("Aphex Twin")
	b := artists.idFor("Aphex Twin")
	c := artists.idFor("Boards of Canada")
	if a != b {
		t.Fatalf("same artist name got different ids: %d vs %d", a, b)
	}
	if a == c {
		t.Fatal("distinct artist names collided on the same id")
	}
	if a == 0 || c == 0 {
		t.Fatal("non-empty names must not get id 0")
	}
}

func TestRefTableEmptyNameGetsZeroID(t *testing.T) {
	r := newRefTable(KindGenres)
	if id := r.idFor(""); id != 0 {
		t.Fatalf("empty name id = %d, want 0", id)
	}
}

func TestBuildPlaylistTablesSkipsSmartlistsButKeepsFoldersAndPlaylists(t *testing.T) {
	playlist := collection.NewNode(collection.NodeKindPlaylist, "Favorites")
	playlist.TrackFingerprints = []string{"fp1"}
	smart := collection.NewNode(collection.NodeKindSmartlist, "Recently Added")
	folder := collection.NewNode(collection.NodeKindFolder, "Root")
	folder.Children = []*collection.Node{playlist, smart}

	trackIDs := map[string]uint32{"fp1": 1}
	treeTbl, entriesTbl := buildPlaylistTables([]*collection.Node{folder}, trackIDs, DefaultPageLen, nil)

	treePages := treeTbl.finish()
	if len(treePages) != 1 {
		t.Fatalf("expected a single tree page, got %d", len(treePages))
	}
	rowCount := binary.LittleEndian.Uint32(treePages[0][12:16])
	if rowCount != 2 {
		t.Fatalf("tree row count = %d, want 2 (folder + playlist, smartlist skipped)", rowCount)
	}

	entryPages := entriesTbl.finish()
	entryRowCount := binary.LittleEndian.Uint32(entryPages[0][12:16])
	if entryRowCount != 1 {
		t.Fatalf("entry row count = %d, want 1", entryRowCount)
	}
}

func TestAssembleFilePatchesNextPageAcrossChainAndLeavesLastPageZero(t *testing.T) {
	tbl := newTable(KindArtists, 256) // tiny page forces a chain
	for i := 0; i < 40; i++ {
		name := "Artist " + string(rune('A'+i%26)) + string(rune('0'+i/26))
		nb, err := encodeDeviceString(name)
		if err != nil {
			t.Fatalf("encodeDeviceString: %v", err)
		}
		id := uint32(i + 1)
		tbl.addRow(referenceRowFixedSize, [][]byte{nb}, func(offsets []uint32) []byte {
			return buildReferenceRow(KindArtists, id, offsets[0])
		})
	}

	data, err := assembleFile(256, []*table{tbl})
	if err != nil {
		t.Fatalf("assembleFile: %v", err)
	}

	dirLen := 8 // one table
	pages := (len(data) - fileHeaderLen - dirLen) / 256
	if pages < 2 {
		t.Fatalf("expected the 40-row table to span multiple 256-byte pages, got %d", pages)
	}
	for i := 0; i < pages; i++ {
		off := fileHeaderLen + dirLen + i*256
		next := binary.LittleEndian.Uint32(data[off+4 : off+8])
		if i < pages-1 {
			if next != uint32(i+2) {
				t.Fatalf("page %d: next_page = %d, want %d", i, next, i+2)
			}
		} else if next != 0 {
			t.Fatalf("last page: next_page = %d, want 0", next)
		}
	}
}

func TestPageRowAndHeapRegionsFillPageExactly(t *testing.T) {
	tbl := newTable(KindArtists, 512)
	nb, _ := encodeDeviceString("Four Tet")
	tbl.addRow(referenceRowFixedSize, [][]byte{nb}, func(offsets []uint32) []byte {
		return buildReferenceRow(KindArtists, 1, offsets[0])
	})
	pages := tbl.finish()
	pg := pages[0]

	rowCount := binary.LittleEndian.Uint32(pg[12:16])
	heapOffset := binary.LittleEndian.Uint32(pg[16:20])
	freeSpace := binary.LittleEndian.Uint32(pg[20:24])

	rowBytes := int(rowCount) * referenceRowFixedSize
	heapBytes := 512 - int(heapOffset)
	sum := pageHeaderLen + rowBytes + heapBytes + int(freeSpace)
	if sum != 512 {
		t.Fatalf("header(%d) + rows(%d) + heap(%d) + free(%d) = %d, want 512",
			pageHeaderLen, rowBytes, heapBytes, freeSpace, sum)
	}
}

func TestEncodeDeviceStringEncodesShortLongAndUTF16Forms(t *testing.T) {
	cases := []struct {
		name string
		s    string
	}{
		{"short ascii", "Daft Punk"},
		{"boundary short ascii", string(make([]byte, 126))},
		{"long ascii", string(make([]byte, 200))},
		{"non ascii", "Björk"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := encodeDeviceString(c.s)
			if err != nil {
				t.Fatalf("encodeDeviceString(%q): %v", c.name, err)
			}
			if len(out) == 0 {
				t.Fatal("empty encoding")
			}
		})
	}
}

func TestEncodeDeviceStringNonASCIITitleMatchesCafeScenario(t *testing.T) {
	out, err := encodeDeviceString("Café")
	if err != nil {
		t.Fatalf("encodeDeviceString: %v", err)
	}
	if out[0] != 0x90 {
		t.Fatalf("kind byte = %#x, want 0x90", out[0])
	}
	gotLen := binary.LittleEndian.Uint16(out[1:3])
	if gotLen != 10 {
		t.Fatalf("length field = %d, want 10", gotLen)
	}
	if len(out)-3 != int(gotLen)-2 {
		t.Fatalf("body length %d does not match length field (want %d)", len(out)-3, gotLen-2)
	}
}

func TestFileKindOfUppercasesExtensionWithoutDot(t *testing.T) {
	if got := fileKindOf("/music/track.flac"); got != "FLAC" {
		t.Fatalf("fileKindOf = %q, want FLAC", got)
	}
	if got := fileKindOf("/music/track.MP3"); got != "MP3" {
		t.Fatalf("fileKindOf = %q, want MP3", got)
	}
}
