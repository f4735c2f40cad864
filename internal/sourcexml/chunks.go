package sourcexml

import "bytes"

// extractBetween returns the byte span of the first top-level
// <startTag ...> ... </startTag> element in data, or nil if not found.
// COLLECTION and PLAYLISTS each appear exactly once as a direct child of
// the root element, so no nesting accounting is needed here.
func extractBetween(data []byte, tag string) []byte {
	open := []byte("<" + tag)
	start := indexTagStart(data, open)
	if start < 0 {
		return nil
	}
	gt := bytes.IndexByte(data[start:], '>')
	if gt < 0 {
		return nil
	}
	gt += start
	if data[gt-1] == '/' {
		return data[start : gt+1]
	}
	closeTag := []byte("</" + tag + ">")
	end := bytes.Index(data[gt+1:], closeTag)
	if end < 0 {
		return nil
	}
	end = gt + 1 + end + len(closeTag)
	return data[start:end]
}

// extractElementChunks splits data into the byte spans of every top-level
// <tag ...>...</tag> (or self-closing <tag .../>) element it contains. It
// does not account for nesting of tag within itself, which is correct for
// ENTRY (entries are flat children of COLLECTION) and lets a single
// malformed entry's span be isolated and discarded without disturbing its
// siblings — the basis of this package's per-entry recovery.
func extractElementChunks(data []byte, tag string) [][]byte {
	open := []byte("<" + tag)
	closeTag := []byte("</" + tag + ">")

	var chunks [][]byte
	i := 0
	for {
		start := indexTagStart(data[i:], open)
		if start < 0 {
			break
		}
		start += i

		gt := bytes.IndexByte(data[start:], '>')
		if gt < 0 {
			break
		}
		gt += start

		if data[gt-1] == '/' {
			chunks = append(chunks, data[start:gt+1])
			i = gt + 1
			continue
		}

		end := bytes.Index(data[gt+1:], closeTag)
		if end < 0 {
			// Unterminated element: stop scanning, the remainder of the
			// document cannot be trusted as a sequence of ENTRY siblings.
			break
		}
		end = gt + 1 + end + len(closeTag)
		chunks = append(chunks, data[start:end])
		i = end
	}
	return chunks
}

// indexTagStart finds the first occurrence of open ("<TAGNAME") in data
// that is actually a tag (followed by whitespace, '>' or '/'), not a
// longer tag name sharing the prefix.
func indexTagStart(data, open []byte) int {
	i := 0
	for {
		idx := bytes.Index(data[i:], open)
		if idx < 0 {
			return -1
		}
		idx += i
		end := idx + len(open)
		if end >= len(data) {
			return idx
		}
		switch data[end] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return idx
		}
		i = idx + 1
	}
}
