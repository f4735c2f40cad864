// Package pathsafe reduces arbitrary Unicode basenames and paths to the
// constraints of the hardware's target filesystem: ASCII only, reserved
// characters replaced, DOS reserved names avoided, and bounded length.
package pathsafe

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnrepresentable is returned when, after sanitisation, the basename is
// empty.
var ErrUnrepresentable = errors.New("pathsafe: name not representable")

const (
	maxBasenameBytes = 200
	maxPathBytes     = 256
)

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// transliterate strips combining marks (accents) after Unicode
// decomposition, then drops anything left that isn't ASCII.
var transliterate = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Basename sanitises name (with its extension, if any) for FAT32 +
// ASCII-only hardware constraints. Rules are applied in the order spec.md
// §4.1 lists them.
func Basename(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	stem = asciiFold(stem)
	ext = asciiFold(ext)

	stem = replaceReservedChars(stem)
	ext = replaceReservedChars(ext)

	stem = collapseUnderscores(stem)

	upper := strings.ToUpper(stem)
	if reservedNames[upper] {
		stem += "_"
	}

	candidate := stem + ext
	candidate = truncatePreservingExt(candidate, ext, maxBasenameBytes)

	if strings.TrimSpace(strings.TrimSuffix(candidate, ext)) == "" {
		return "", ErrUnrepresentable
	}
	return candidate, nil
}

// FullPath sanitises basename and, if the joined path would exceed
// maxPathBytes, shortens the basename further (preserving its extension)
// until the total fits.
func FullPath(dir, name string) (string, error) {
	base, err := Basename(name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(dir, base)
	if len(full) <= maxPathBytes {
		return full, nil
	}

	ext := filepath.Ext(base)
	overflow := len(full) - maxPathBytes
	stem := strings.TrimSuffix(base, ext)
	if overflow >= len(stem) {
		return "", ErrUnrepresentable
	}
	base = stem[:len(stem)-overflow] + ext
	if strings.TrimSpace(strings.TrimSuffix(base, ext)) == "" {
		return "", ErrUnrepresentable
	}
	return filepath.Join(dir, base), nil
}

func asciiFold(s string) string {
	out, _, err := transform.String(transliterate, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const reservedChars = `<>:"/\|?*`

func replaceReservedChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r <= 0x1F || r == 0x7F:
			b.WriteByte('_')
		case strings.ContainsRune(reservedChars, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncatePreservingExt(full, ext string, limit int) string {
	if len(full) <= limit {
		return full
	}
	stem := strings.TrimSuffix(full, ext)
	budget := limit - len(ext)
	if budget < 0 {
		budget = 0
	}
	if len(stem) > budget {
		stem = stem[:budget]
	}
	return stem + ext
}
