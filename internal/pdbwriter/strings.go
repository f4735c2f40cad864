// Package pdbwriter emits the paged, little-endian binary database
// (PIONEER/rekordbox/export.pdb) described in spec.md §4.6: tracks,
// reference tables (artists/albums/genres/labels/keys/colours), and the
// playlist tree, using the DeviceSQL variable-length string encoding.
//
// ALL MULTIBYTE INTEGERS IN THIS PACKAGE ARE LITTLE-ENDIAN — the inverse of
// internal/anlz's big-endian analysis files.
package pdbwriter

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

// ErrStringUnrepresentable is returned when a mandatory string cannot be
// encoded at all (its DeviceSQL form would exceed the u16 length field).
var ErrStringUnrepresentable = errors.New("pdbwriter: string unrepresentable")

const maxDeviceSQLFieldLen = 0xFFFF

// encodeDeviceString renders s in the smallest DeviceSQL shape that fits it
// (spec.md §4.6 "the writer MUST choose the smallest form that fits").
//
// Decoding a short-form string recovers its real length as
// (prefix-1)/2 - 1: the encoded body carries one extra trailing NUL byte
// beyond the visible characters, so the short form's usable-length ceiling
// is 126, not 127 — the literal 127 in the spec's table overflows a u8
// prefix once that implicit terminator is counted. This off-by-one is
// treated as contract (mirrors the real format's own encoding, not a bug to
// smooth over), so the short form is used up to 126 bytes and the long
// form handles 127 and above.
func encodeDeviceString(s string) ([]byte, error) {
	if isASCII(s) {
		n := len(s)
		if n <= 126 {
			return encodeShortASCII(s), nil
		}
		return encodeLongASCII(s)
	}
	return encodeUTF16Form(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

func encodeShortASCII(s string) []byte {
	n := len(s)
	out := make([]byte, 0, n+2)
	out = append(out, byte((n+1)*2+1))
	out = append(out, s...)
	out = append(out, 0)
	return out
}

// encodeLongASCII's length field is self-relative: it counts itself (2
// bytes) plus the body and trailing NUL, not the leading kind byte
// (spec.md §8 S2: "Café" UTF-16BE body of 8 bytes declares a length of 10,
// not 11).
func encodeLongASCII(s string) ([]byte, error) {
	fieldLen := 2 + len(s) + 1
	if fieldLen > maxDeviceSQLFieldLen {
		return nil, ErrStringUnrepresentable
	}
	out := make([]byte, 0, 1+fieldLen)
	out = append(out, 0x40)
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(fieldLen))
	out = append(out, lenBuf...)
	out = append(out, s...)
	out = append(out, 0)
	return out, nil
}

// encodeUTF16Form's length field is likewise self-relative: 2 (the field
// itself) plus the UTF-16BE body, excluding the leading kind byte.
func encodeUTF16Form(s string) ([]byte, error) {
	u16 := utf16.Encode([]rune(s))
	body := make([]byte, len(u16)*2)
	for i, r := range u16 {
		binary.BigEndian.PutUint16(body[i*2:i*2+2], r)
	}
	fieldLen := 2 + len(body)
	if fieldLen > maxDeviceSQLFieldLen {
		return nil, ErrStringUnrepresentable
	}
	out := make([]byte, 0, 1+fieldLen)
	out = append(out, 0x90)
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(fieldLen))
	out = append(out, lenBuf...)
	out = append(out, body...)
	return out, nil
}
