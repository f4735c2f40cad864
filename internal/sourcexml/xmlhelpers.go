package sourcexml

import (
	"bytes"
	"encoding/xml"
)

// decodeChunk unmarshals a single isolated element span. Isolating each
// element this way (rather than one xml.Unmarshal over the whole document)
// is what lets a syntax error in one ENTRY leave its siblings untouched.
func decodeChunk(chunk []byte, v interface{}) error {
	d := xml.NewDecoder(bytes.NewReader(chunk))
	d.Strict = true
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	return d.Decode(v)
}

// detectAttr scans the opening tag of the first occurrence of tag in data
// for attrName and returns its value, or "" if either is absent.
func detectAttr(data []byte, tag, attrName string) string {
	span := extractBetween(data, tag)
	if span == nil {
		return ""
	}
	gt := bytes.IndexByte(span, '>')
	if gt < 0 {
		return ""
	}
	opening := span[:gt]

	needle := []byte(attrName + "=\"")
	idx := bytes.Index(opening, needle)
	if idx < 0 {
		return ""
	}
	idx += len(needle)
	end := bytes.IndexByte(opening[idx:], '"')
	if end < 0 {
		return ""
	}
	return string(opening[idx : idx+end])
}
