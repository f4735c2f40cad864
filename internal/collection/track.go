// Package collection holds the in-memory representation of a parsed DJ
// library: tracks, cue points, the playlist/folder tree, and the
// collection that ties them together.
package collection

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

// CueKind enumerates the kinds of cue point a Track can carry.
type CueKind int

const (
	CueKindCue CueKind = iota
	CueKindFadeIn
	CueKindFadeOut
	CueKindMemory
	CueKindGridAnchor
	CueKindLoop
)

// MemorySlot is the hot-cue slot value used for memory (non-hot) cues.
const MemorySlot = -1

// CuePoint is a named time position within a track.
type CuePoint struct {
	Name        string
	Kind        CueKind
	StartMs     int64
	LengthMs    int64 // 0 for point cues, >0 for loops
	HotCueSlot  int   // -1 = memory, 0..7 = hot slot
	HasColor    bool
	ColorRGB    [3]byte
	DisplayOrder int
}

// IsLoop reports whether the cue has non-zero length.
func (c CuePoint) IsLoop() bool { return c.LengthMs > 0 }

// IsHot reports whether the cue occupies a hot-cue pad.
func (c CuePoint) IsHot() bool { return c.HotCueSlot >= 0 }

// Track is a single library entry.
type Track struct {
	Fingerprint string // stable, unique within a Collection

	Title    string
	Artist   string
	Album    string
	Genre    string
	Label    string
	Comment  string
	Remixer  string

	Path       string // absolute
	FileSize   int64
	SampleRate int // Hz: 22050, 44100, 48000, 88200, 96000, or 0 if unknown
	BitrateKbps int
	SampleBits int
	DurationSec    int
	DurationSecF   float64

	BPM float64

	KeyIndex    int // 0..23
	HasKeyIndex bool

	Rating    int // 0..5
	PlayCount int

	DateAdded    time.Time
	DateModified time.Time
	LastPlayed   time.Time

	ColorTag int // 0..7

	Cues []CuePoint

	GridAnchorMs    int64
	HasGridAnchor bool
}

// validSampleRates is the set of sample rates the spec treats as "known".
var validSampleRates = mapset.NewThreadUnsafeSet(22050, 44100, 48000, 88200, 96000)

// Validate checks the invariants of spec.md §3 for a single track. It does
// not check collection-wide invariants (fingerprint uniqueness); the
// caller (the parser) is responsible for that.
func (t *Track) Validate() error {
	if t.Fingerprint == "" {
		return fmt.Errorf("track %q: empty fingerprint", t.Path)
	}
	if t.BPM < 0 {
		return fmt.Errorf("track %s: negative BPM %f", t.Fingerprint, t.BPM)
	}
	if t.SampleRate != 0 && !validSampleRates.Contains(t.SampleRate) {
		return fmt.Errorf("track %s: unrecognised sample rate %d", t.Fingerprint, t.SampleRate)
	}
	if t.HasKeyIndex && (t.KeyIndex < 0 || t.KeyIndex > 23) {
		return fmt.Errorf("track %s: key index %d out of range 0..23", t.Fingerprint, t.KeyIndex)
	}
	if err := t.validateCues(); err != nil {
		return fmt.Errorf("track %s: %w", t.Fingerprint, err)
	}
	return nil
}

func (t *Track) validateCues() error {
	seenHotSlots := mapset.NewThreadUnsafeSet[int]()
	durationMs := int64(t.DurationSec) * 1000
	tolerance := int64(2000)

	for _, cue := range t.Cues {
		if cue.StartMs < 0 {
			return fmt.Errorf("cue %q: negative start %dms", cue.Name, cue.StartMs)
		}
		if cue.IsHot() {
			if seenHotSlots.Contains(cue.HotCueSlot) {
				return fmt.Errorf("duplicate hot-cue slot %d", cue.HotCueSlot)
			}
			seenHotSlots.Add(cue.HotCueSlot)
		}
		if durationMs > 0 && cue.StartMs+cue.LengthMs > durationMs+tolerance {
			return fmt.Errorf("cue %q: start+length %dms exceeds duration %dms + tolerance", cue.Name, cue.StartMs+cue.LengthMs, durationMs)
		}
	}
	return nil
}

// NodeKind enumerates the kinds of node in the playlist tree.
type NodeKind int

const (
	NodeKindFolder NodeKind = iota
	NodeKindPlaylist
	NodeKindSmartlist
)

// Node is one element of the playlist/folder tree.
type Node struct {
	ID   string // stable UUID
	Kind NodeKind
	Name string

	// Folder: ordered children.
	Children []*Node

	// Playlist: ordered track fingerprints.
	TrackFingerprints []string

	// Smartlist: the free-form query, passed through to interchange XML and
	// ignored for hardware export. Also surfaced here so an embedding
	// caller can render it without re-parsing the interchange XML.
	SmartQuery string

	// Empty is set by cross-resolution when every entry of a playlist
	// failed to resolve to a track.
	Empty bool
}

// NewNode allocates a Node with a fresh stable UUID.
func NewNode(kind NodeKind, name string) *Node {
	return &Node{ID: uuid.NewString(), Kind: kind, Name: name}
}

// Stats carries bookkeeping about a parsed collection.
type Stats struct {
	SourceVersion string
	EntryCount    int
	ParseTime     time.Duration
}

// Collection is the result of parsing a source library: the fingerprint→
// Track mapping plus the root of the playlist tree.
type Collection struct {
	Tracks map[string]*Track
	Roots  []*Node
	Stats  Stats
}

// New returns an empty Collection ready for incremental population by a
// parser.
func New() *Collection {
	return &Collection{Tracks: make(map[string]*Track)}
}

// AddTrack inserts t, keyed by its fingerprint. It is an error to insert
// two tracks with the same fingerprint; the caller (parser) is expected to
// have already deduplicated or to treat this as an EntryMalformed warning.
func (c *Collection) AddTrack(t *Track) error {
	if _, exists := c.Tracks[t.Fingerprint]; exists {
		return fmt.Errorf("duplicate fingerprint %s", t.Fingerprint)
	}
	c.Tracks[t.Fingerprint] = t
	return nil
}

// Walk visits every node in the tree rooted at roots, depth first,
// preserving source order.
func Walk(roots []*Node, visit func(*Node)) {
	var walk func(*Node)
	walk = func(n *Node) {
		visit(n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, r := range roots {
		walk(r)
	}
}
