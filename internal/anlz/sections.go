package anlz

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/shopspring/decimal"

	"github.com/algiers/cratebridge/internal/collection"
)

const genericHeaderLen = 12 // tag(4) + header_len(4) + total_len(4)

// writeSection appends one tagged section to buf: the 4-byte ASCII tag,
// header length, total section length, then the payload bytes (which
// already include any fixed sub-header fields beyond the generic three).
// headerLen only controls the declared header_len field, marking where
// within the written bytes the fixed sub-header ends; it does not add any
// extra bytes of its own, so the declared total is always exactly the
// bytes actually written: the 12-byte generic header plus the payload.
func writeSection(buf *bytes.Buffer, tag string, headerLen uint32, payload []byte) {
	buf.WriteString(tag)
	binary.Write(buf, binary.BigEndian, headerLen)
	binary.Write(buf, binary.BigEndian, genericHeaderLen+uint32(len(payload)))
	buf.Write(payload)
}

func encodeUTF16BE(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	out := make([]byte, len(u16)*2)
	for i, r := range u16 {
		out[i*2] = byte(r >> 8)
		out[i*2+1] = byte(r)
	}
	return out
}

// buildPPTH builds the path section: u32 byte-length of the encoded name
// including its trailing NUL, its UTF-16BE bytes, and that trailing NUL
// (two zero bytes).
func buildPPTH(filename string) []byte {
	enc := encodeUTF16BE(filename)
	var payload bytes.Buffer
	binary.Write(&payload, binary.BigEndian, uint32(len(enc)+2))
	payload.Write(enc)
	payload.Write([]byte{0, 0})
	return payload.Bytes()
}

const (
	beatWrap           = 4
	maxGridEntries     = 1500
	pqtzReserved1      = uint32(1)
	pqtzReserved2      = uint32(0x00800000)
)

// buildPQTZ builds the beat-grid section for a track with a known BPM and
// grid anchor. Returns nil if the track is too short for even one beat
// (spec.md §4.5 TrackTooShortForGrid — the container is still produced,
// just without this section).
func buildPQTZ(anchorMs int64, bpm float64, durationMs int64) []byte {
	if bpm <= 0 {
		return nil
	}
	beatIntervalMs := 60000.0 / bpm
	if float64(durationMs-anchorMs) < beatIntervalMs {
		return nil
	}

	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, pqtzReserved1)
	binary.Write(&body, binary.BigEndian, pqtzReserved2)

	tempoHundredths := uint16(decimal.NewFromFloat(bpm).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	beatNum := uint16(1)
	pos := float64(anchorMs)
	count := 0
	for pos < float64(durationMs) && count < maxGridEntries {
		binary.Write(&body, binary.BigEndian, beatNum)
		binary.Write(&body, binary.BigEndian, tempoHundredths)
		binary.Write(&body, binary.BigEndian, uint32(pos))
		beatNum++
		if beatNum > beatWrap {
			beatNum = 1
		}
		pos += beatIntervalMs
		count++
	}
	return body.Bytes()
}

const pwavFlagWord = uint32(0x00100000)
const pwavPayloadLen = 400

// buildPWAV builds the fixed-size preview-waveform section. No DSP runs in
// this system (BPM/key always come from source metadata, never redetected
// from audio — spec.md Non-goal 1), so the 400 amplitude/colour bytes are a
// structurally valid, silent placeholder rather than a real waveform.
func buildPWAV() []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, pwavFlagWord)
	body.Write(make([]byte, pwavPayloadLen))
	return body.Bytes()
}

// pcobKindMemory and pcobKindHot select which cue subset a PCOB section
// carries (spec.md §4.5: two such sections per track when both exist).
const (
	pcobKindMemory = uint32(0)
	pcobKindHot    = uint32(1)
	pcobReserved   = uint32(0x00010000)
)

// buildPCOB builds one cue-list section for the given subset of cues.
// extended selects the PCP2 entry shape (comment + RGB) over PCPT.
func buildPCOB(kind uint32, cues []collection.CuePoint, extended bool) []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, kind)
	binary.Write(&body, binary.BigEndian, pcobReserved)
	binary.Write(&body, binary.BigEndian, uint16(len(cues)))

	for i, c := range cues {
		if extended {
			body.Write(buildPCP2Entry(c, i))
		} else {
			body.Write(buildPCPTEntry(c, i))
		}
	}
	return body.Bytes()
}

// cueEntryType values (spec.md §4.5): 1 = point, 2 = loop.
const (
	cueTypePoint = uint16(1)
	cueTypeLoop  = uint16(2)
)

// loopEndSentinel marks a non-loop cue's loop-end field.
const loopEndSentinel = uint32(0xFFFFFFFF)

// buildPCPTEntry builds one fixed-38-byte PCPT record. Status is 0 for
// every hot cue except an active loop, which is 4 — not every loop, only
// an active one (spec.md §9 open question 2: retain this asymmetry
// verbatim rather than "fixing" it to apply to all loops).
func buildPCPTEntry(c collection.CuePoint, order int) []byte {
	buf := make([]byte, 38)
	buf[0] = byte(c.HotCueSlot)
	status := byte(0)
	if c.IsLoop() && c.Kind == collection.CueKindLoop {
		status = 4
	}
	buf[1] = status
	binary.BigEndian.PutUint16(buf[2:4], uint16(order))
	binary.BigEndian.PutUint16(buf[4:6], uint16(order))
	cueType := cueTypePoint
	if c.IsLoop() {
		cueType = cueTypeLoop
	}
	binary.BigEndian.PutUint16(buf[6:8], cueType)
	binary.BigEndian.PutUint32(buf[8:12], uint32(c.StartMs))
	loopEnd := loopEndSentinel
	if c.IsLoop() {
		loopEnd = uint32(c.StartMs + c.LengthMs)
	}
	binary.BigEndian.PutUint32(buf[12:16], loopEnd)
	// bytes 16..38 reserved, left zero.
	return buf
}

// buildPCP2Entry builds the extended PCP2 record: the fixed PCPT shape
// followed by a UTF-16BE comment and four RGB bytes (spec.md §4.5).
func buildPCP2Entry(c collection.CuePoint, order int) []byte {
	fixed := buildPCPTEntry(c, order)
	comment := encodeUTF16BE(c.Name)

	var out bytes.Buffer
	out.Write(fixed)
	binary.Write(&out, binary.BigEndian, uint32(len(comment)))
	out.Write(comment)
	if c.HasColor {
		out.Write(c.ColorRGB[:])
		out.WriteByte(0)
	} else {
		out.Write([]byte{0, 0, 0, 0})
	}
	return out.Bytes()
}

// colourWaveformTag mirrors the real ANLZ format's colour-waveform-preview
// section; spec.md names the other tags explicitly but leaves this one
// unnamed ("colour-waveform section"), so PWV4 is chosen by analogy.
const colourWaveformTag = "PWV4"

// buildColourWaveform builds the .EXT file's colour waveform section — like
// buildPWAV, a structurally valid placeholder since no DSP runs here.
func buildColourWaveform() []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, pwavFlagWord)
	body.Write(make([]byte, pwavPayloadLen))
	return body.Bytes()
}

// buildPSSI builds an empty (zero-entry) phrase-structure section. Real
// phrase detection requires audio analysis, which is out of scope
// (spec.md Non-goal 1); tier-c exports still get a structurally valid,
// empty PSSI rather than omitting the file's one tier-defining section.
func buildPSSI() []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, uint16(0)) // entry count
	return body.Bytes()
}
