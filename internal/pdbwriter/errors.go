package pdbwriter

import "errors"

// ErrCollectionTooLarge is returned when the track count exceeds the
// hardware constraint of 20 000 tracks per export.
var ErrCollectionTooLarge = errors.New("pdbwriter: collection too large")

// MaxTracks is the hardware track-count ceiling (spec.md §4.6).
const MaxTracks = 20000

// DefaultPageLen is the page size used when Input.PageLen is 0.
const DefaultPageLen = 4096
