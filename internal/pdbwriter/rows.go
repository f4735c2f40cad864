package pdbwriter

import "encoding/binary"

// trackRowFixedSize is the 88-byte numeric portion of spec.md §4.6's track
// row plus its 5 trailing heap-pointer slots (title, path, comment,
// remixer, file-kind), 20 more bytes.
const trackRowFixedSize = 88 + 20

// trackRowInput carries the already-resolved numeric ids a track row needs;
// the writer is responsible for reference-table id allocation.
type trackRowInput struct {
	TrackID     uint32
	ArtistID    uint32
	AlbumID     uint32
	GenreID     uint32
	LabelID     uint32
	KeyID       uint32
	BPMx100     uint32
	DurationSec uint32
	SampleRate  uint32
	FileSize    uint32
	BitrateKbps uint16
	Rating      uint16
	ColourID    uint32
	DateAdded   uint32
	PlayCount   uint32
	Year        uint32
}

func buildTrackRow(in trackRowInput, offsets []uint32) []byte {
	buf := make([]byte, trackRowFixedSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(KindTracks))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(trackRowFixedSize))
	binary.LittleEndian.PutUint32(buf[4:8], in.TrackID)
	binary.LittleEndian.PutUint32(buf[8:12], in.ArtistID)
	binary.LittleEndian.PutUint32(buf[12:16], in.AlbumID)
	binary.LittleEndian.PutUint32(buf[16:20], in.GenreID)
	binary.LittleEndian.PutUint32(buf[20:24], in.LabelID)
	binary.LittleEndian.PutUint32(buf[24:28], in.KeyID)
	binary.LittleEndian.PutUint32(buf[28:32], in.BPMx100)
	binary.LittleEndian.PutUint32(buf[32:36], in.DurationSec)
	binary.LittleEndian.PutUint32(buf[36:40], in.SampleRate)
	binary.LittleEndian.PutUint32(buf[40:44], in.FileSize)
	binary.LittleEndian.PutUint16(buf[44:46], in.BitrateKbps)
	binary.LittleEndian.PutUint16(buf[46:48], in.Rating)
	binary.LittleEndian.PutUint32(buf[48:52], in.ColourID)
	binary.LittleEndian.PutUint32(buf[52:56], in.DateAdded)
	binary.LittleEndian.PutUint32(buf[56:60], in.PlayCount)
	binary.LittleEndian.PutUint32(buf[60:64], in.Year)
	// buf[64:88] reserved, left zero.
	binary.LittleEndian.PutUint32(buf[88:92], offsets[0])  // title
	binary.LittleEndian.PutUint32(buf[92:96], offsets[1])  // path
	binary.LittleEndian.PutUint32(buf[96:100], offsets[2]) // comment
	binary.LittleEndian.PutUint32(buf[100:104], offsets[3])// remixer
	binary.LittleEndian.PutUint32(buf[104:108], offsets[4])// file kind
	return buf
}

// referenceRowFixedSize is the row shape shared by artists, albums, genres,
// labels, colours, and keys: (u32 id, heap-pointer to name).
const referenceRowFixedSize = 8

func buildReferenceRow(kind uint32, id uint32, nameOffset uint32) []byte {
	buf := make([]byte, referenceRowFixedSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	binary.LittleEndian.PutUint32(buf[4:8], nameOffset)
	_ = kind
	return buf
}

// playlistTreeRowFixedSize: (u32 node id, u32 parent id, u32 seq, u8 kind,
// heap-pointer name), padded to a 4-byte boundary.
const playlistTreeRowFixedSize = 20

const (
	playlistNodeKindFolder   uint8 = 0
	playlistNodeKindPlaylist uint8 = 1
)

func buildPlaylistTreeRow(nodeID, parentID, seq uint32, kind uint8, nameOffset uint32) []byte {
	buf := make([]byte, playlistTreeRowFixedSize)
	binary.LittleEndian.PutUint32(buf[0:4], nodeID)
	binary.LittleEndian.PutUint32(buf[4:8], parentID)
	binary.LittleEndian.PutUint32(buf[8:12], seq)
	buf[12] = kind
	binary.LittleEndian.PutUint32(buf[16:20], nameOffset)
	return buf
}

// playlistEntryRowFixedSize: (u32 playlist id, u32 track id, u32 position).
const playlistEntryRowFixedSize = 12

func buildPlaylistEntryRow(playlistID, trackID, position uint32) []byte {
	buf := make([]byte, playlistEntryRowFixedSize)
	binary.LittleEndian.PutUint32(buf[0:4], playlistID)
	binary.LittleEndian.PutUint32(buf[4:8], trackID)
	binary.LittleEndian.PutUint32(buf[8:12], position)
	return buf
}
