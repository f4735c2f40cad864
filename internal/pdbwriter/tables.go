package pdbwriter

// Table kind ids (spec.md §4.6).
const (
	KindTracks           uint32 = 0
	KindGenres           uint32 = 1
	KindArtists          uint32 = 2
	KindAlbums           uint32 = 3
	KindLabels           uint32 = 4
	KindKeys             uint32 = 5
	KindColours          uint32 = 6
	KindPlaylistTree     uint32 = 7
	KindPlaylistEntries  uint32 = 8
	KindArtwork          uint32 = 13
	KindHistoryPlaylists uint32 = 17
	KindHistoryEntries   uint32 = 18
)

// table accumulates a table kind's rows across as many chained pages as
// needed, sealing the current page and starting a fresh one whenever a row
// would not fit.
type table struct {
	kind    uint32
	pageLen int

	sealedPages [][]byte // sealed bytes, next-page index patched in later
	cur         *pageBuilder
}

func newTable(kind uint32, pageLen int) *table {
	t := &table{kind: kind, pageLen: pageLen}
	t.cur = newPageBuilder(pageLen, kind, 0)
	return t
}

// addRow adds one row, sealing the current page first if the row would not
// fit. fixedSize is the row's fixed-width portion (including any heap
// pointer slots); heapStrings are the already-DeviceSQL-encoded variable
// strings the row references, in the order buildFixed expects their
// offsets. buildFixed receives the resolved page-relative heap offsets and
// returns the complete row-slot bytes.
func (t *table) addRow(fixedSize int, heapStrings [][]byte, buildFixed func(offsets []uint32) []byte) {
	if !t.cur.fits(fixedSize, heapStrings) {
		t.sealCurrent()
	}
	offsets := t.cur.addHeapStrings(heapStrings)
	t.cur.addRow(buildFixed(offsets))
}

func (t *table) sealCurrent() {
	t.sealedPages = append(t.sealedPages, t.cur.seal(0))
	t.cur = newPageBuilder(t.pageLen, t.kind, uint32(len(t.sealedPages)))
}

// finish seals any remaining open page (even if empty, so every table has
// at least one page) and returns the sealed page bytes in order.
func (t *table) finish() [][]byte {
	if t.cur.rowCount > 0 || len(t.sealedPages) == 0 {
		t.sealedPages = append(t.sealedPages, t.cur.seal(0))
	}
	return t.sealedPages
}
