// Package anlz writes the big-endian, tagged-section analysis files the
// hardware export places under PIONEER/USBANLZ — one PMAI container per
// track, carrying the beat grid, cue list, and (tier-gated) waveform and
// phrase-structure sections.
//
// All multibyte integers in this package are big-endian, the inverse of
// internal/pdbwriter's little-endian database (spec.md §4.5/§4.6). Audio
// signal content is never analysed here (spec.md's Non-goal 1: BPM and key
// always come from source metadata) — the waveform and phrase sections this
// package emits are structurally valid placeholders, not real DSP output.
package anlz

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"strings"
)

// PathHash computes the directory-placement hash for absPath: the first 4
// bytes of MD5(lowercase, forward-slash-normalised absPath), interpreted
// little-endian, formatted as 8 uppercase hex digits. Treat the algorithm
// as contract (spec.md §9 open question 4) — whether real hardware requires
// MD5 specifically is unknown, but it is what the source does.
func PathHash(absPath string) (dir8 string, prefix3 string) {
	normalised := strings.ToLower(strings.ReplaceAll(absPath, `\`, "/"))
	sum := md5.Sum([]byte(normalised))
	h := binary.LittleEndian.Uint32(sum[:4])
	dir8 = fmt.Sprintf("%08X", h)
	prefix3 = dir8[:3]
	return dir8, prefix3
}

// RelativePath returns the PIONEER-relative path an analysis file of the
// given extension (DAT, EXT, 2EX) lives at for absPath.
func RelativePath(absPath, ext string) string {
	dir8, prefix3 := PathHash(absPath)
	return fmt.Sprintf("PIONEER/USBANLZ/P%s/%s/ANLZ0000.%s", prefix3, dir8, ext)
}
