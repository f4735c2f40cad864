// Package interchange writes the vendor-neutral interchange XML format
// described in spec.md §4.8: a product header, a flat collection of track
// elements, and a recursive playlist-node tree referencing tracks by id.
//
// Grounded directly on internal/exporter/rekordbox.go's RekordboxXML
// struct family (the teacher's own struct-tag XML marshalling approach),
// generalized from a single flat playlist into the full folder/
// playlist/smartlist tree and from placeholder field values into real
// collection.Track data.
package interchange

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/keys"
)

// Document is the root element.
type Document struct {
	XMLName    xml.Name   `xml:"DJ_PLAYLISTS"`
	Version    string     `xml:"Version,attr"`
	Product    Product    `xml:"PRODUCT"`
	Collection Collection `xml:"COLLECTION"`
	Playlists  Playlists  `xml:"PLAYLISTS"`
}

// Product identifies the exporting application.
type Product struct {
	Name    string `xml:"Name,attr"`
	Version string `xml:"Version,attr"`
	Company string `xml:"Company,attr"`
}

// Collection holds every track reachable from the export plan, flat.
type Collection struct {
	Entries int     `xml:"Entries,attr"`
	Tracks  []Track `xml:"TRACK"`
}

// Track is one collection entry (spec.md §4.8's full attribute set).
type Track struct {
	TrackID     int     `xml:"TrackID,attr"`
	Name        string  `xml:"Name,attr"`
	Artist      string  `xml:"Artist,attr,omitempty"`
	Album       string  `xml:"Album,attr,omitempty"`
	Genre       string  `xml:"Genre,attr,omitempty"`
	Kind        string  `xml:"Kind,attr,omitempty"`
	Size        int64   `xml:"Size,attr,omitempty"`
	TotalTime   int     `xml:"TotalTime,attr"`
	Year        int     `xml:"Year,attr,omitempty"`
	AverageBpm  string  `xml:"AverageBpm,attr"`
	BitRate     int     `xml:"BitRate,attr,omitempty"`
	SampleRate  int     `xml:"SampleRate,attr,omitempty"`
	Rating      int     `xml:"Rating,attr"`
	PlayCount   int     `xml:"PlayCount,attr,omitempty"`
	DateAdded   string  `xml:"DateAdded,attr,omitempty"`
	Tonality    string  `xml:"Tonality,attr,omitempty"`
	Location    string  `xml:"Location,attr"`
	PositionMarks []PositionMark `xml:"POSITION_MARK,omitempty"`
}

// PositionMark is a cue point: Type 0 for a plain cue, 4 for a loop.
type PositionMark struct {
	Name  string `xml:"Name,attr,omitempty"`
	Type  int    `xml:"Type,attr"`
	Start string `xml:"Start,attr"`
	End   string `xml:"End,attr,omitempty"`
	Num   int    `xml:"Num,attr"`
	Red   int    `xml:"Red,attr,omitempty"`
	Green int    `xml:"Green,attr,omitempty"`
	Blue  int    `xml:"Blue,attr,omitempty"`
}

// Playlists is the playlist-tree container; Root mirrors the source
// collection's implicit top-level folder.
type Playlists struct {
	Root Node `xml:"NODE"`
}

// Node is Type=0 for a folder (Count = number of children) or Type=1 for a
// playlist (Entries = number of track references).
type Node struct {
	Type     int                `xml:"Type,attr"`
	Name     string             `xml:"Name,attr"`
	Count    int                `xml:"Count,attr,omitempty"`
	Entries  int                `xml:"Entries,attr,omitempty"`
	Children []Node             `xml:"NODE,omitempty"`
	Tracks   []PlaylistTrackRef `xml:"TRACK,omitempty"`
}

// PlaylistTrackRef is a track reference by collection track id.
type PlaylistTrackRef struct {
	Key int `xml:"Key,attr"`
}

const (
	nodeTypeFolder   = 0
	nodeTypePlaylist = 1

	cueTypePlain = 0
	cueTypeLoop  = 4
)

// Options configures a Build call.
type Options struct {
	KeyNotation keys.Format
	ProductName    string
	ProductVersion string
	ProductCompany string
}

// defaultOptions fills the product identity the teacher's RekordboxXML
// hard-coded inline.
func defaultOptions(o Options) Options {
	if o.ProductName == "" {
		o.ProductName = "cratebridge"
	}
	if o.ProductVersion == "" {
		o.ProductVersion = "1.0"
	}
	if o.ProductCompany == "" {
		o.ProductCompany = "cratebridge"
	}
	return o
}

// Build renders the interchange document for tracks (in export-plan/id
// order, id = index+1) and the playlist tree rooted at roots.
func Build(tracks []*collection.Track, roots []*collection.Node, opts Options) ([]byte, error) {
	opts = defaultOptions(opts)

	trackIDs := make(map[string]int, len(tracks))
	xmlTracks := make([]Track, 0, len(tracks))
	for i, tr := range tracks {
		id := i + 1
		trackIDs[tr.Fingerprint] = id

		tonality := ""
		if tr.HasKeyIndex {
			if s, err := keys.To(tr.KeyIndex, opts.KeyNotation); err == nil {
				tonality = s
			}
		}

		xmlTracks = append(xmlTracks, Track{
			TrackID:       id,
			Name:          tr.Title,
			Artist:        tr.Artist,
			Album:         tr.Album,
			Genre:         tr.Genre,
			Kind:          fileKind(tr.Path),
			Size:          tr.FileSize,
			TotalTime:     tr.DurationSec,
			AverageBpm:    fmt.Sprintf("%.2f", tr.BPM),
			BitRate:       tr.BitrateKbps,
			SampleRate:    tr.SampleRate,
			Rating:        tr.Rating,
			PlayCount:     tr.PlayCount,
			DateAdded:     tr.DateAdded.Format("2006-01-02"),
			Tonality:      tonality,
			Location:      fileLocation(tr.Path),
			PositionMarks: positionMarks(tr.Cues),
		})
	}

	root := buildNode("ROOT", roots, trackIDs)

	doc := Document{
		Version: "1.0.0",
		Product: Product{Name: opts.ProductName, Version: opts.ProductVersion, Company: opts.ProductCompany},
		Collection: Collection{
			Entries: len(xmlTracks),
			Tracks:  xmlTracks,
		},
		Playlists: Playlists{Root: root},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("interchange: marshal: %w", err)
	}
	out := append([]byte(xml.Header), body...)
	return out, nil
}

// buildNode wraps roots under a synthetic ROOT folder, the way rekordbox's
// own interchange XML always has one top-level folder node.
func buildNode(name string, children []*collection.Node, trackIDs map[string]int) Node {
	n := Node{Type: nodeTypeFolder, Name: name}
	for _, c := range children {
		n.Children = append(n.Children, nodeFrom(c, trackIDs))
	}
	n.Count = len(n.Children)
	return n
}

func nodeFrom(src *collection.Node, trackIDs map[string]int) Node {
	if src.Kind == collection.NodeKindFolder {
		n := Node{Type: nodeTypeFolder, Name: src.Name}
		for _, c := range src.Children {
			n.Children = append(n.Children, nodeFrom(c, trackIDs))
		}
		n.Count = len(n.Children)
		return n
	}

	// Playlist and Smartlist both render as Type=1 playlist nodes: a
	// smartlist's query is software-only and has no interchange-XML
	// representation here, so it is written out with whatever track
	// references it has already been resolved to (none, if it was never
	// materialized) rather than being dropped.
	n := Node{Type: nodeTypePlaylist, Name: src.Name}
	for _, fp := range src.TrackFingerprints {
		if id, ok := trackIDs[fp]; ok {
			n.Tracks = append(n.Tracks, PlaylistTrackRef{Key: id})
		}
	}
	n.Entries = len(n.Tracks)
	return n
}

func positionMarks(cues []collection.CuePoint) []PositionMark {
	out := make([]PositionMark, 0, len(cues))
	for _, c := range cues {
		typ := cueTypePlain
		var end string
		if c.IsLoop() {
			typ = cueTypeLoop
			end = fmt.Sprintf("%.3f", float64(c.StartMs+c.LengthMs)/1000)
		}
		pm := PositionMark{
			Name:  c.Name,
			Type:  typ,
			Start: fmt.Sprintf("%.3f", float64(c.StartMs)/1000),
			End:   end,
			Num:   c.HotCueSlot,
		}
		if c.HasColor {
			pm.Red, pm.Green, pm.Blue = int(c.ColorRGB[0]), int(c.ColorRGB[1]), int(c.ColorRGB[2])
		}
		out = append(out, pm)
	}
	return out
}

// fileLocation renders path as file://localhost/<url-encoded path with
// forward slashes> (spec.md §4.8).
func fileLocation(path string) string {
	slashed := filepath.ToSlash(path)
	segments := strings.Split(slashed, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file://localhost/" + strings.TrimPrefix(strings.Join(segments, "/"), "/")
}

func fileKind(path string) string {
	ext := strings.TrimPrefix(strings.ToUpper(filepath.Ext(path)), ".")
	if ext == "" {
		return ""
	}
	return ext + " File"
}
