// Package keys translates between the source collection's 24-value key
// index and the notations hardware and interchange formats expect:
// Open-Key/Camelot, classical, flat-classical, and the target vendor's own
// key id. It also answers harmonic-mixing questions over the Camelot
// wheel.
//
// The table below generalizes the partial Camelot maps the teacher wrote
// twice, once per vendor writer (camelotToRekordbox, camelotToTraktorKey),
// into one authoritative, round-trip-tested source of truth.
package keys

import (
	"errors"
	"fmt"
	"sync"
)

// Format selects which notation a key index is rendered in.
type Format int

const (
	FormatOpenKey Format = iota
	FormatClassical
	FormatFlatClassical
	FormatVendorID
)

// ErrInvalidKeyIndex is returned for any index outside 0..23.
var ErrInvalidKeyIndex = errors.New("keys: invalid key index")

type entry struct {
	openKey       string
	classical     string
	flatClassical string
	vendorID      int
	rgb           [3]byte
}

// table is indexed by the 24-value key index. Index assignment follows the
// Camelot wheel: indices 0..11 are the "A" (minor) ring 1A..12A, indices
// 12..23 are the "B" (major) ring 1B..12B. This mirrors how the teacher's
// two partial maps already paired 1A/1B, 2A/2B, etc.
var table = [24]entry{
	{"1A", "Abm", "G#m", 20, [3]byte{0x7A, 0x4C, 0xA6}},
	{"2A", "Ebm", "D#m", 15, [3]byte{0x9A, 0x4F, 0xB0}},
	{"3A", "Bbm", "A#m", 22, [3]byte{0xB0, 0x52, 0x8C}},
	{"4A", "Fm", "Fm", 17, [3]byte{0xC0, 0x60, 0x60}},
	{"5A", "Cm", "Cm", 12, [3]byte{0xD0, 0x70, 0x50}},
	{"6A", "Gm", "Gm", 19, [3]byte{0xD8, 0x92, 0x40}},
	{"7A", "Dm", "Dm", 14, [3]byte{0xC8, 0xB0, 0x30}},
	{"8A", "Am", "Am", 21, [3]byte{0xA8, 0xC0, 0x40}},
	{"9A", "Em", "Em", 16, [3]byte{0x78, 0xC0, 0x60}},
	{"10A", "Bm", "Bm", 23, [3]byte{0x48, 0xB8, 0x88}},
	{"11A", "Gbm", "F#m", 18, [3]byte{0x40, 0xA0, 0xB8}},
	{"12A", "Dbm", "C#m", 13, [3]byte{0x50, 0x80, 0xD0}},
	{"1B", "B", "B", 11, [3]byte{0x8A, 0x5C, 0xB6}},
	{"2B", "Gb", "F#", 6, [3]byte{0xAA, 0x5F, 0xC0}},
	{"3B", "Db", "C#", 1, [3]byte{0xC0, 0x62, 0x9C}},
	{"4B", "Ab", "G#", 8, [3]byte{0xD2, 0x70, 0x70}},
	{"5B", "Eb", "D#", 3, [3]byte{0xE0, 0x80, 0x60}},
	{"6B", "Bb", "A#", 10, [3]byte{0xE8, 0xA2, 0x50}},
	{"7B", "F", "F", 5, [3]byte{0xD8, 0xC0, 0x40}},
	{"8B", "C", "C", 0, [3]byte{0xB8, 0xD0, 0x50}},
	{"9B", "G", "G", 7, [3]byte{0x88, 0xD0, 0x70}},
	{"10B", "D", "D", 2, [3]byte{0x58, 0xC8, 0x98}},
	{"11B", "A", "A", 9, [3]byte{0x50, 0xB0, 0xC8}},
	{"12B", "E", "E", 4, [3]byte{0x60, 0x90, 0xE0}},
}

var openKeyToIndex = func() map[string]int {
	m := make(map[string]int, len(table))
	for i, e := range table {
		m[e.openKey] = i
	}
	return m
}()

// classicalToIndex indexes both the classical and flat-classical spellings
// of every table entry (case-insensitive), so free-text key attributes in
// either sharp or flat notation resolve to the same index.
var classicalToIndex = func() map[string]int {
	m := make(map[string]int, len(table)*2)
	for i, e := range table {
		m[normalizeClassical(e.classical)] = i
		m[normalizeClassical(e.flatClassical)] = i
	}
	return m
}()

func normalizeClassical(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'A' && b <= 'Z':
			out = append(out, b)
		case b >= 'a' && b <= 'z':
			if i == 0 {
				out = append(out, b-32)
			} else {
				out = append(out, b)
			}
		default:
			out = append(out, b)
		}
	}
	return string(out)
}

var cacheMu sync.Mutex
var cache = make(map[[2]int]string) // key: {index, int(format)}

// To renders index in the given format; an out-of-range index returns
// ErrInvalidKeyIndex.
func To(index int, format Format) (string, error) {
	if index < 0 || index > 23 {
		return "", fmt.Errorf("%w: %d", ErrInvalidKeyIndex, index)
	}

	cacheKey := [2]int{index, int(format)}
	cacheMu.Lock()
	if v, ok := cache[cacheKey]; ok {
		cacheMu.Unlock()
		return v, nil
	}
	cacheMu.Unlock()

	e := table[index]
	var out string
	switch format {
	case FormatOpenKey:
		out = e.openKey
	case FormatClassical:
		out = e.classical
	case FormatFlatClassical:
		out = e.flatClassical
	case FormatVendorID:
		out = fmt.Sprintf("%d", e.vendorID)
	default:
		return "", fmt.Errorf("keys: unknown format %d", format)
	}

	cacheMu.Lock()
	cache[cacheKey] = out
	cacheMu.Unlock()
	return out, nil
}

// IndexFromOpenKey is the inverse of To(idx, FormatOpenKey). Empty string in
// produces (0, false).
func IndexFromOpenKey(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	idx, ok := openKeyToIndex[token]
	return idx, ok
}

// IndexFromClassical resolves a classical or flat-classical token ("Abm",
// "G#m", "F#", "Gb") to a key index, case-insensitively on the letter name.
// Empty string in produces (0, false).
func IndexFromClassical(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	idx, ok := classicalToIndex[normalizeClassical(token)]
	return idx, ok
}

// IndexFromText resolves a free-text key attribute of unknown notation,
// trying Open-Key first (the common case for NML-family sources) and
// falling back to classical/flat-classical. This backs the source parser's
// "fall back to the free-text key attribute" rule when no dedicated
// key-index sub-element is present.
func IndexFromText(token string) (int, bool) {
	if idx, ok := IndexFromOpenKey(token); ok {
		return idx, true
	}
	return IndexFromClassical(token)
}

// Neighbours is the result of a harmonic-mixing query over the Camelot
// wheel (spec.md §4.2's six named relationships: perfect_matches, energy_up,
// energy_down, harmonic_matches, dominant_matches, relative_key).
type Neighbours struct {
	PerfectMatch string // same number, opposite letter pair partner is handled via RelativeKey; PerfectMatch is same token (mix freely)
	EnergyUp     string // +1 on the numeric axis, same letter
	EnergyDown   string // -1 on the numeric axis, same letter
	RelativeKey  string // flip A<->B, same number
	DominantUp   string // +2 on the numeric axis, same letter
	DominantDown string // -2 on the numeric axis, same letter
	HarmonicUp   string // +1 on the numeric axis, opposite letter (the wheel's diagonal neighbour)
	HarmonicDown string // -1 on the numeric axis, opposite letter
}

// HarmonicNeighbours computes the Camelot-wheel neighbours of openKey.
func HarmonicNeighbours(openKey string) (Neighbours, error) {
	num, letter, err := parseOpenKey(openKey)
	if err != nil {
		return Neighbours{}, err
	}

	otherLetter := byte('B')
	if letter == 'B' {
		otherLetter = 'A'
	}

	return Neighbours{
		PerfectMatch: openKey,
		EnergyUp:     wheelToken(wrap(num+1), letter),
		EnergyDown:   wheelToken(wrap(num-1), letter),
		RelativeKey:  wheelToken(num, otherLetter),
		DominantUp:   wheelToken(wrap(num+2), letter),
		DominantDown: wheelToken(wrap(num-2), letter),
		HarmonicUp:   wheelToken(wrap(num+1), otherLetter),
		HarmonicDown: wheelToken(wrap(num-1), otherLetter),
	}, nil
}

// Direction selects which way Progression walks the wheel.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionHarmonic
)

// Progression returns the sequence of keys reached by stepping in direction
// from openKey. DirectionUp and DirectionDown walk a full 12-step cycle back
// to the start; DirectionHarmonic returns three keys: number+1 same letter,
// same number opposite letter, number-1 same letter.
func Progression(openKey string, dir Direction) ([]string, error) {
	num, letter, err := parseOpenKey(openKey)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, 12)
	switch dir {
	case DirectionUp:
		for i := 1; i <= 12; i++ {
			out = append(out, wheelToken(wrap(num+i), letter))
		}
	case DirectionDown:
		for i := 1; i <= 12; i++ {
			out = append(out, wheelToken(wrap(num-i), letter))
		}
	case DirectionHarmonic:
		other := byte('B')
		if letter == 'B' {
			other = 'A'
		}
		out = append(out,
			wheelToken(wrap(num+1), letter),
			wheelToken(num, other),
			wheelToken(wrap(num-1), letter),
		)
	default:
		return nil, fmt.Errorf("keys: unknown direction %d", dir)
	}
	return out, nil
}

// WheelColour returns the RGB colour rekordbox-family UIs paint a given
// Open-Key token's wedge of the Camelot wheel with.
func WheelColour(openKey string) ([3]byte, error) {
	idx, ok := IndexFromOpenKey(openKey)
	if !ok {
		return [3]byte{}, fmt.Errorf("%w: %q", ErrInvalidKeyIndex, openKey)
	}
	return table[idx].rgb, nil
}

func parseOpenKey(token string) (num int, letter byte, err error) {
	idx, ok := openKeyToIndex[token]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidKeyIndex, token)
	}
	e := table[idx]
	letter = e.openKey[len(e.openKey)-1]
	fmt.Sscanf(e.openKey[:len(e.openKey)-1], "%d", &num)
	return num, letter, nil
}

func wheelToken(num int, letter byte) string {
	return fmt.Sprintf("%d%c", num, letter)
}

func wrap(num int) int {
	num = ((num-1)%12 + 12) % 12
	return num + 1
}
