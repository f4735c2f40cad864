package anlz

import (
	"bytes"
	"encoding/binary"
)

const (
	containerMagic     = "PMAI"
	containerHeaderLen = uint32(28)
)

// assembleContainer writes the PMAI container header followed by the given
// already-tagged section bytes, back-patching the file-length field once
// the total size is known (spec.md §4.5 "Assembly").
func assembleContainer(sections ...[]byte) []byte {
	var body bytes.Buffer
	for _, s := range sections {
		body.Write(s)
	}

	var out bytes.Buffer
	out.WriteString(containerMagic)
	binary.Write(&out, binary.BigEndian, containerHeaderLen)
	fileLen := containerHeaderLen + uint32(body.Len())
	binary.Write(&out, binary.BigEndian, fileLen)
	out.Write(make([]byte, 16)) // reserved
	out.Write(body.Bytes())
	return out.Bytes()
}

// section is a convenience wrapper pairing a tag with its already-built
// payload, so callers can build a list declaratively before assembling.
type section struct {
	tag        string
	headerLen  uint32
	payload    []byte
}

func (s section) bytes() []byte {
	if s.payload == nil {
		return nil
	}
	var buf bytes.Buffer
	writeSection(&buf, s.tag, s.headerLen, s.payload)
	return buf.Bytes()
}
