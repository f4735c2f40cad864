// Package fileindex builds a basename→absolute-path lookup over a music
// root directory, used to repair Track paths that have drifted since the
// source library was authored.
//
// The walk itself is grounded on internal/scanner's filepath.WalkDir loop;
// the bounded, access-count-tracked eviction policy is new (the scanner's
// own HashCache never evicts).
package fileindex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ErrUnusable is returned when the index's root directory does not exist.
var ErrUnusable = errors.New("fileindex: root directory unusable")

// DefaultCap is the default bound on the number of entries retained.
const DefaultCap = 30000

// recognisedExtensions is the set of audio file extensions the walk
// considers.
var recognisedExtensions = mapset.NewThreadUnsafeSet(
	".mp3", ".flac", ".wav", ".aiff", ".aif", ".m4a", ".ogg", ".opus", ".alac", ".wma",
)

type record struct {
	path        string
	accessCount int
	insertSeq   int
}

// Index is a bounded-size, access-count-evicting basename→path map.
type Index struct {
	cap     int
	entries map[string]*record
	nextSeq int
}

// Build walks root and indexes every recognised audio file by its
// lowercase basename. On a basename collision the first-seen path wins —
// this determinism is a safety property (spec.md §4.3): repeated builds
// over the same tree must agree.
func Build(root string, capacity int) (*Index, error) {
	if capacity <= 0 {
		capacity = DefaultCap
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrUnusable, root)
	}

	idx := &Index{cap: capacity, entries: make(map[string]*record)}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // tolerate unreadable subtrees, keep walking
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !recognisedExtensions.Contains(ext) {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		idx.insert(strings.ToLower(filepath.Base(path)), abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fileindex: walk %s: %w", root, err)
	}

	return idx, nil
}

func (idx *Index) insert(basename, path string) {
	if _, exists := idx.entries[basename]; exists {
		return // first-seen wins
	}
	if len(idx.entries) >= idx.cap {
		idx.evictOne()
	}
	idx.entries[basename] = &record{path: path, insertSeq: idx.nextSeq}
	idx.nextSeq++
}

// evictOne removes the entry with the lowest access count, ties broken by
// earliest insertion order.
func (idx *Index) evictOne() {
	var victim string
	var victimRec *record
	for name, rec := range idx.entries {
		if victimRec == nil ||
			rec.accessCount < victimRec.accessCount ||
			(rec.accessCount == victimRec.accessCount && rec.insertSeq < victimRec.insertSeq) {
			victim = name
			victimRec = rec
		}
	}
	if victim != "" {
		delete(idx.entries, victim)
	}
}

// Lookup returns the absolute path for basename, or "" if unknown. Missing
// lookups are not an error (spec.md §4.3).
func (idx *Index) Lookup(basename string) string {
	rec, ok := idx.entries[strings.ToLower(basename)]
	if !ok {
		return ""
	}
	rec.accessCount++
	return rec.path
}

// Len returns the number of entries currently held.
func (idx *Index) Len() int { return len(idx.entries) }
