package sourcexml

import "bytes"

// preClean strips control characters the XML parser would choke on and
// escapes a stray '&' that is not the start of a recognised entity or
// numeric character reference — spec.md §4.4 "Pre-clean".
func preClean(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if isStrippedControl(b) {
			continue
		}
		if b == '&' {
			out = append(out, escapeStrayAmpersand(data, i)...)
			continue
		}
		out = append(out, b)
	}
	return out
}

func isStrippedControl(b byte) bool {
	switch {
	case b <= 0x08:
		return true
	case b == 0x0B || b == 0x0C:
		return true
	case b >= 0x0E && b <= 0x1F:
		return true
	case b == 0x7F:
		return true
	default:
		return false
	}
}

var knownEntities = [][]byte{
	[]byte("&amp;"), []byte("&lt;"), []byte("&gt;"), []byte("&apos;"), []byte("&quot;"),
}

// escapeStrayAmpersand returns the bytes to emit in place of the '&' at
// data[i]: the literal ampersand start of a recognised entity/numeric
// reference is passed through untouched; anything else is escaped to
// "&amp;" so the parser does not choke on it.
func escapeStrayAmpersand(data []byte, i int) []byte {
	rest := data[i:]
	for _, ent := range knownEntities {
		if bytes.HasPrefix(rest, ent) {
			return []byte{'&'}
		}
	}
	if bytes.HasPrefix(rest, []byte("&#")) {
		// numeric character reference: &#NNNN; or &#xHHHH;
		j := i + 2
		if j < len(data) && data[j] == 'x' {
			j++
		}
		start := j
		for j < len(data) && isHexOrDigit(data[j]) {
			j++
		}
		if j > start && j < len(data) && data[j] == ';' {
			return []byte{'&'}
		}
	}
	return []byte("&amp;")
}

func isHexOrDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
