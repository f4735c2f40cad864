package pdbwriter

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/keys"
)

const fileHeaderLen = 28

// Input is everything writer needs to assemble one export.pdb image. Tracks
// is the export-plan order (track ids are assigned 1..N in this order);
// Roots is the already-deduplicated, already-pruned playlist tree the
// caller wants mirrored onto the device (smartlists are skipped — hardware
// has no concept of a computed playlist).
type Input struct {
	Tracks  []*collection.Track
	Roots   []*collection.Node
	PageLen int // 0 => DefaultPageLen

	// Logger receives a Warn record for each playlist-node name that could
	// not be DeviceSQL-encoded and was written empty instead.
	// Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// refTable accumulates a dedup name->id map for one of the six reference
// tables, assigning ids by first-seen order starting at 1 (0 means "none").
type refTable struct {
	kind uint32
	ids  map[string]uint32
	next uint32
}

func newRefTable(kind uint32) *refTable {
	return &refTable{kind: kind, ids: make(map[string]uint32), next: 1}
}

// idFor returns 0 for an empty name (no row emitted). Otherwise it returns
// the name's id, assigning a fresh one the first time the name is seen.
func (r *refTable) idFor(name string) uint32 {
	if name == "" {
		return 0
	}
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := r.next
	r.next++
	r.ids[name] = id
	return id
}

// names returns the table's entries ordered by ascending id.
func (r *refTable) names() []string {
	out := make([]string, len(r.ids))
	for name, id := range r.ids {
		out[id-1] = name
	}
	return out
}

var colourNames = [8]string{"None", "Pink", "Red", "Orange", "Yellow", "Green", "Aqua", "Blue"}

func colourName(tag int) string {
	if tag < 0 || tag > 7 {
		return ""
	}
	return colourNames[tag]
}

// Build assembles a complete export.pdb image from in. The returned bytes
// are written verbatim to PIONEER/rekordbox/export.pdb; spec.md's "possible
// source bug" duplicate copy under DeviceSQL.edb is the export
// orchestrator's concern, not this package's.
func Build(in Input) ([]byte, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("pdbwriter building export.pdb", "tracks", len(in.Tracks))

	if len(in.Tracks) > MaxTracks {
		return nil, fmt.Errorf("%w: %d tracks", ErrCollectionTooLarge, len(in.Tracks))
	}
	pageLen := in.PageLen
	if pageLen == 0 {
		pageLen = DefaultPageLen
	}

	artists := newRefTable(KindArtists)
	albums := newRefTable(KindAlbums)
	genres := newRefTable(KindGenres)
	labels := newRefTable(KindLabels)
	colours := newRefTable(KindColours)
	keyTable := newRefTable(KindKeys)

	trackIDs := make(map[string]uint32, len(in.Tracks)) // fingerprint -> id

	tracksTbl := newTable(KindTracks, pageLen)

	for i, tr := range in.Tracks {
		id := uint32(i + 1)
		trackIDs[tr.Fingerprint] = id

		artistID := artists.idFor(tr.Artist)
		albumID := albums.idFor(tr.Album)
		genreID := genres.idFor(tr.Genre)
		labelID := labels.idFor(tr.Label)
		colourID := colours.idFor(colourName(tr.ColorTag))

		var keyID uint32
		if tr.HasKeyIndex {
			name, err := keys.To(tr.KeyIndex, keys.FormatOpenKey)
			if err == nil {
				keyID = keyTable.idFor(name)
			}
		}

		title, err := encodeDeviceString(tr.Title)
		if err != nil {
			return nil, fmt.Errorf("track %s: title: %w", tr.Fingerprint, err)
		}
		path, err := encodeDeviceString(tr.Path)
		if err != nil {
			return nil, fmt.Errorf("track %s: path: %w", tr.Fingerprint, err)
		}
		comment, err := encodeDeviceString(tr.Comment)
		if err != nil {
			return nil, fmt.Errorf("track %s: comment: %w", tr.Fingerprint, err)
		}
		remixer, err := encodeDeviceString(tr.Remixer)
		if err != nil {
			return nil, fmt.Errorf("track %s: remixer: %w", tr.Fingerprint, err)
		}
		fileKind, err := encodeDeviceString(fileKindOf(tr.Path))
		if err != nil {
			return nil, fmt.Errorf("track %s: file kind: %w", tr.Fingerprint, err)
		}

		row := trackRowInput{
			TrackID:     id,
			ArtistID:    artistID,
			AlbumID:     albumID,
			GenreID:     genreID,
			LabelID:     labelID,
			KeyID:       keyID,
			BPMx100:     uint32(decimal.NewFromFloat(tr.BPM).Mul(decimal.NewFromInt(100)).Round(0).IntPart()),
			DurationSec: uint32(tr.DurationSec),
			SampleRate:  uint32(tr.SampleRate),
			FileSize:    uint32(tr.FileSize),
			BitrateKbps: uint16(tr.BitrateKbps),
			Rating:      uint16(tr.Rating),
			ColourID:    colourID,
			DateAdded:   uint32(tr.DateAdded.Unix()),
			PlayCount:   uint32(tr.PlayCount),
			Year:        0,
		}

		heapStrings := [][]byte{title, path, comment, remixer, fileKind}
		tracksTbl.addRow(trackRowFixedSize, heapStrings, func(offsets []uint32) []byte {
			return buildTrackRow(row, offsets)
		})
	}

	genresTbl, err := buildRefPages(genres, pageLen)
	if err != nil {
		return nil, err
	}
	artistsTbl, err := buildRefPages(artists, pageLen)
	if err != nil {
		return nil, err
	}
	albumsTbl, err := buildRefPages(albums, pageLen)
	if err != nil {
		return nil, err
	}
	labelsTbl, err := buildRefPages(labels, pageLen)
	if err != nil {
		return nil, err
	}
	keysTbl, err := buildRefPages(keyTable, pageLen)
	if err != nil {
		return nil, err
	}
	coloursTbl, err := buildRefPages(colours, pageLen)
	if err != nil {
		return nil, err
	}

	treeTbl, entriesTbl := buildPlaylistTables(in.Roots, trackIDs, pageLen, logger)

	tables := []*table{
		tracksTbl, genresTbl, artistsTbl, albumsTbl, labelsTbl, keysTbl,
		coloursTbl, treeTbl, entriesTbl,
	}

	out, err := assembleFile(pageLen, tables)
	if err != nil {
		return nil, err
	}
	logger.Info("pdbwriter finished", "bytes", len(out), "tables", len(tables))
	return out, nil
}

func buildRefPages(r *refTable, pageLen int) (*table, error) {
	tbl := newTable(r.kind, pageLen)
	for _, name := range r.names() {
		id := r.ids[name]
		nameBytes, err := encodeDeviceString(name)
		if err != nil {
			return nil, fmt.Errorf("reference table: %q: %w", name, err)
		}
		tbl.addRow(referenceRowFixedSize, [][]byte{nameBytes}, func(offsets []uint32) []byte {
			return buildReferenceRow(r.kind, id, offsets[0])
		})
	}
	return tbl, nil
}

// buildPlaylistTables walks roots pre-order, assigning node ids starting at
// 1 under a synthetic root (id 0, parent 0, never emitted as a row of its
// own — only its children are). Smartlist nodes are skipped: hardware has
// no representation for a computed playlist (spec.md Non-goal territory
// for the database writer; they still reach interchange XML separately).
func buildPlaylistTables(roots []*collection.Node, trackIDs map[string]uint32, pageLen int, logger *slog.Logger) (*table, *table) {
	if logger == nil {
		logger = slog.Default()
	}
	treeTbl := newTable(KindPlaylistTree, pageLen)
	entriesTbl := newTable(KindPlaylistEntries, pageLen)

	nextID := uint32(1)
	var walk func(n *collection.Node, parentID uint32, seq uint32)
	walk = func(n *collection.Node, parentID uint32, seq uint32) {
		if n.Kind == collection.NodeKindSmartlist {
			return
		}
		id := nextID
		nextID++

		var kind uint8
		if n.Kind == collection.NodeKindFolder {
			kind = playlistNodeKindFolder
		} else {
			kind = playlistNodeKindPlaylist
		}

		nameBytes, err := encodeDeviceString(n.Name)
		if err != nil {
			// An unrepresentable node name degrades to empty rather than
			// aborting the whole export; the node is still reachable by id.
			logger.Warn("playlist node name degraded to empty", "name", n.Name, "id", id, "error", err)
			nameBytes, _ = encodeDeviceString("")
		}
		treeTbl.addRow(playlistTreeRowFixedSize, [][]byte{nameBytes}, func(offsets []uint32) []byte {
			return buildPlaylistTreeRow(id, parentID, seq, kind, offsets[0])
		})

		if n.Kind == collection.NodeKindPlaylist {
			for pos, fp := range n.TrackFingerprints {
				trackID, ok := trackIDs[fp]
				if !ok {
					continue
				}
				entriesTbl.addRow(playlistEntryRowFixedSize, nil, func(_ []uint32) []byte {
					return buildPlaylistEntryRow(id, trackID, uint32(pos))
				})
			}
		}

		for i, child := range n.Children {
			walk(child, id, uint32(i))
		}
	}

	for i, root := range roots {
		walk(root, 0, uint32(i))
	}

	return treeTbl, entriesTbl
}

// assembleFile lays out the file header, the table-pointer directory, and
// every table's sealed pages in one global, 1-based page numbering,
// patching each page's next-page-index field as it assigns that numbering.
func assembleFile(pageLen int, tables []*table) ([]byte, error) {
	type placed struct {
		kind  uint32
		first uint32
		pages [][]byte
	}

	var allPages [][]byte
	placements := make([]placed, 0, len(tables))
	nextIndex := uint32(1)

	for _, t := range tables {
		pages := t.finish()
		first := nextIndex
		for i, pg := range pages {
			var next uint32
			if i < len(pages)-1 {
				next = nextIndex + 1
			}
			binary.LittleEndian.PutUint32(pg[4:8], next)
			allPages = append(allPages, pg)
			nextIndex++
		}
		placements = append(placements, placed{kind: t.kind, first: first, pages: pages})
	}

	header := make([]byte, fileHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], 0) // signature
	binary.LittleEndian.PutUint32(header[4:8], uint32(pageLen))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(tables)))
	binary.LittleEndian.PutUint32(header[12:16], nextIndex) // next_unused_page
	binary.LittleEndian.PutUint32(header[16:20], 0)         // reserved
	binary.LittleEndian.PutUint32(header[20:24], 1)         // sequence
	binary.LittleEndian.PutUint32(header[24:28], 0)         // reserved

	directory := make([]byte, 8*len(tables))
	for i, p := range placements {
		binary.LittleEndian.PutUint32(directory[i*8:i*8+4], p.kind)
		binary.LittleEndian.PutUint32(directory[i*8+4:i*8+8], p.first)
	}

	out := make([]byte, 0, len(header)+len(directory)+len(allPages)*pageLen)
	out = append(out, header...)
	out = append(out, directory...)
	for _, pg := range allPages {
		out = append(out, pg...)
	}
	return out, nil
}

// fileKindOf derives the short file-kind label (e.g. "MP3", "FLAC") stored
// alongside a track's other heap strings, from its path extension.
func fileKindOf(path string) string {
	ext := strings.TrimPrefix(strings.ToUpper(filepath.Ext(path)), ".")
	return ext
}
