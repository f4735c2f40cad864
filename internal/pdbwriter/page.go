package pdbwriter

import "encoding/binary"

const pageHeaderLen = 28

// pageBuilder accumulates one page's worth of row slots (growing from the
// low end, just after the header) and heap strings (growing from the high
// end). Both regions are tracked so a row can be rejected before it is
// physically placed if it would not fit (spec.md §4.6 "A page is sealed
// when a new row would exceed the free-space budget").
type pageBuilder struct {
	pageLen  int
	kind     uint32
	sequence uint32

	rowBuf   []byte
	rowCount uint32

	heapBuf  []byte // physical heap bytes, already in final (low-to-high) order
	heapUsed int
}

func newPageBuilder(pageLen int, kind uint32, sequence uint32) *pageBuilder {
	return &pageBuilder{pageLen: pageLen, kind: kind, sequence: sequence}
}

func (p *pageBuilder) freeSpace() int {
	return p.pageLen - pageHeaderLen - len(p.rowBuf) - p.heapUsed
}

// fits reports whether a row needing rowSize bytes of row-slot space and
// the given heap strings (summed) would fit in the remaining free space.
func (p *pageBuilder) fits(rowSize int, heapStrings [][]byte) bool {
	need := rowSize
	for _, s := range heapStrings {
		need += len(s)
	}
	return need <= p.freeSpace()
}

// addHeapStrings places each string at the current high end of the heap,
// nearest strings first, and returns their page-relative byte offsets in
// the same order. Offsets are stable once returned: later insertions are
// placed further from the page end, never disturbing earlier ones.
func (p *pageBuilder) addHeapStrings(strs [][]byte) []uint32 {
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		p.heapUsed += len(s)
		offset := p.pageLen - p.heapUsed
		offsets[i] = uint32(offset)
		p.heapBuf = append(s, p.heapBuf...)
	}
	return offsets
}

func (p *pageBuilder) addRow(rowBytes []byte) {
	p.rowBuf = append(p.rowBuf, rowBytes...)
	p.rowCount++
}

// seal renders the final page bytes. nextPageIndex is 0 if this is the last
// page of its table's chain.
func (p *pageBuilder) seal(nextPageIndex uint32) []byte {
	buf := make([]byte, p.pageLen)
	binary.LittleEndian.PutUint32(buf[0:4], p.kind)
	binary.LittleEndian.PutUint32(buf[4:8], nextPageIndex)
	binary.LittleEndian.PutUint32(buf[8:12], p.sequence)
	binary.LittleEndian.PutUint32(buf[12:16], p.rowCount)
	heapOffset := uint32(p.pageLen - p.heapUsed)
	binary.LittleEndian.PutUint32(buf[16:20], heapOffset)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(p.freeSpace()))
	// buf[24:28] reserved, left zero.

	copy(buf[pageHeaderLen:], p.rowBuf)
	copy(buf[p.pageLen-p.heapUsed:], p.heapBuf)
	return buf
}
