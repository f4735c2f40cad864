package sourcexml

import "encoding/xml"

// The struct shapes below mirror the source collection's NML-style schema.
// They are the read-side counterpart of internal/interchange's write-side
// structs and of the teacher's own internal/exporter/traktor.go, and were
// cross-checked against the djlibgo Traktor collection parser in the
// reference pack (other_examples/...djlibgo__traktor-collectionParser.go).

type rawNML struct {
	XMLName    xml.Name      `xml:"NML"`
	Version    string        `xml:"VERSION,attr"`
	Collection rawCollection `xml:"COLLECTION"`
	Playlists  rawPlaylists  `xml:"PLAYLISTS"`
}

type rawCollection struct {
	Entries int        `xml:"ENTRIES,attr"`
	Tracks  []rawEntry `xml:"ENTRY"`
}

type rawEntry struct {
	Artist       string      `xml:"ARTIST,attr"`
	Title        string      `xml:"TITLE,attr"`
	AudioID      string      `xml:"AUDIO_ID,attr"`
	ModifiedDate string      `xml:"MODIFIED_DATE,attr"`
	Location     rawLocation `xml:"LOCATION"`
	Album        rawAlbum    `xml:"ALBUM"`
	Info         rawInfo     `xml:"INFO"`
	Tempo        rawTempo      `xml:"TEMPO"`
	MusicalKey   *rawMusicalKey `xml:"MUSICAL_KEY"`
	CuePoints    []rawCueV2  `xml:"CUE_V2"`
}

type rawLocation struct {
	Dir      string `xml:"DIR,attr"`
	File     string `xml:"FILE,attr"`
	Volume   string `xml:"VOLUME,attr"`
	VolumeID string `xml:"VOLUMEID,attr"`
}

type rawAlbum struct {
	Title string `xml:"TITLE,attr"`
}

type rawInfo struct {
	Bitrate     int    `xml:"BITRATE,attr"`
	Genre       string `xml:"GENRE,attr"`
	Label       string `xml:"LABEL,attr"`
	Comment     string `xml:"COMMENT,attr"`
	Key         string `xml:"KEY,attr"`
	PlayCount   int    `xml:"PLAYCOUNT,attr"`
	PlayTime    int    `xml:"PLAYTIME,attr"`
	ImportDate  string `xml:"IMPORT_DATE,attr"`
	LastPlayed  string `xml:"LAST_PLAYED,attr"`
	Ranking     int    `xml:"RANKING,attr"` // 0..255, bucketed to 0..5
	Remixer     string `xml:"REMIXER,attr"`
	FileSize    int64  `xml:"FILESIZE,attr"`
	PlayColor   int    `xml:"PLAYCOLOR,attr"`
}

type rawTempo struct {
	BPM float64 `xml:"BPM,attr"`
}

type rawMusicalKey struct {
	Value int `xml:"VALUE,attr"`
}

type rawCueV2 struct {
	Name    string      `xml:"NAME,attr"`
	Type    int         `xml:"TYPE,attr"`
	Start   float64     `xml:"START,attr"` // milliseconds
	Len     float64     `xml:"LEN,attr"`   // milliseconds
	Hotcue  int         `xml:"HOTCUE,attr"`
	Grid    *rawCueGrid `xml:"GRID"`
	Red     int         `xml:"RED,attr"`
	Green   int         `xml:"GREEN,attr"`
	Blue    int         `xml:"BLUE,attr"`
}

// rawCueGrid is the nested per-segment tempo carried by some grid-anchor
// cues (spec.md §4.4 "Cue extraction").
type rawCueGrid struct {
	BPM float64 `xml:"BPM,attr"`
}

type rawPlaylists struct {
	Node rawNode `xml:"NODE"`
}

type rawNode struct {
	Type     string         `xml:"TYPE,attr"`
	Name     string         `xml:"NAME,attr"`
	Count    int            `xml:"COUNT,attr"`
	Subnodes []rawNode      `xml:"SUBNODES>NODE"`
	Playlist *rawPlaylist   `xml:"PLAYLIST"`
	Smart    *rawSmartQuery `xml:"SMARTLIST"`
}

type rawSmartQuery struct {
	Query string `xml:",chardata"`
}

type rawPlaylist struct {
	Entries int               `xml:"ENTRIES,attr"`
	Type    string            `xml:"TYPE,attr"`
	Tracks  []rawPlaylistItem `xml:"ENTRY"`
}

type rawPlaylistItem struct {
	PrimaryKey rawPrimaryKey `xml:"PRIMARYKEY"`
}

type rawPrimaryKey struct {
	Type string `xml:"TYPE,attr"`
	Key  string `xml:"KEY,attr"`
}
