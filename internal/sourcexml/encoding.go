package sourcexml

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

// sniffWindow is how much of the file the encoding detector looks at
// (spec.md §4.4: "read the first 8 KiB").
const sniffWindow = 8 * 1024

// detectEncoding inspects the first sniffWindow bytes of data for a BOM,
// falling back to a statistical byte-histogram confidence score. Below
// confidence 0.7 we fall back to UTF-8 — spec.md §9 calls this out as a
// deliberate design choice: source files are UTF-8 in practice, and a low
// confidence almost always indicates corruption the XML recovery step will
// also catch, so a heavier encoding-detection library buys nothing here.
func detectEncoding(data []byte) (decoded []byte, bomConsumed bool, undetermined bool) {
	window := data
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}

	if bytes.HasPrefix(window, []byte{0xEF, 0xBB, 0xBF}) {
		return data[3:], true, false
	}
	if bytes.HasPrefix(window, []byte{0xFF, 0xFE}) || bytes.HasPrefix(window, []byte{0xFE, 0xFF}) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, err := dec.Bytes(data)
		if err == nil {
			return out, true, false
		}
	}

	confidence := utf8Confidence(window)
	if confidence < 0.7 {
		return data, false, true
	}
	return data, false, false
}

// utf8Confidence is a simple byte-histogram statistical detector: well-
// formed UTF-8 has a very regular relationship between lead bytes and
// continuation bytes. We score the fraction of bytes that participate in a
// structurally valid UTF-8 sequence.
func utf8Confidence(window []byte) float64 {
	if len(window) == 0 {
		return 1.0
	}

	valid := 0
	total := 0
	i := 0
	for i < len(window) {
		b := window[i]
		switch {
		case b < 0x80:
			valid++
			total++
			i++
		case b>>5 == 0b110 && i+1 < len(window) && isCont(window[i+1]):
			valid += 2
			total += 2
			i += 2
		case b>>4 == 0b1110 && i+2 < len(window) && isCont(window[i+1]) && isCont(window[i+2]):
			valid += 3
			total += 3
			i += 3
		case b>>3 == 0b11110 && i+3 < len(window) && isCont(window[i+1]) && isCont(window[i+2]) && isCont(window[i+3]):
			valid += 4
			total += 4
			i += 4
		default:
			total++
			i++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(valid) / float64(total)
}

func isCont(b byte) bool { return b>>6 == 0b10 }
