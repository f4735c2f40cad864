package sourcexml

import (
	"path/filepath"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/keys"
)

// materializeTrack converts a decoded rawEntry into a collection.Track.
// version gates the schema variants noted in spec.md §4.4: versions below
// 20 never carry per-cue colour attributes, so HasColor is left false for
// those sources rather than guessed from zeroed RGB fields.
func materializeTrack(e rawEntry, version int) *collection.Track {
	fullPath := buildFullPath(e.Location.Volume, e.Location.Dir, e.Location.File)

	t := &collection.Track{
		Fingerprint: canonicalKey(fullPath),
		Title:       e.Title,
		Artist:      e.Artist,
		Album:       e.Album.Title,
		Genre:       e.Info.Genre,
		Label:       e.Info.Label,
		Comment:     e.Info.Comment,
		Remixer:     e.Info.Remixer,
		Path:        fullPath,
		FileSize:    e.Info.FileSize,
		BitrateKbps: e.Info.Bitrate,
		PlayCount:   e.Info.PlayCount,
		Rating:      bucketRating(e.Info.Ranking),
		ColorTag:    e.Info.PlayColor,
	}

	if e.Info.PlayTime > 0 {
		t.DurationSec = e.Info.PlayTime
		t.DurationSecF = float64(e.Info.PlayTime)
	}

	t.BPM = e.Tempo.BPM

	if e.MusicalKey != nil {
		t.KeyIndex = e.MusicalKey.Value
		t.HasKeyIndex = true
	} else if idx, ok := keys.IndexFromText(e.Info.Key); ok {
		t.KeyIndex = idx
		t.HasKeyIndex = true
	}

	if ts, ok := parseNMLDate(e.Info.ImportDate); ok {
		t.DateAdded = ts
	}
	if ts, ok := parseNMLDate(e.ModifiedDate); ok {
		t.DateModified = ts
	}
	if ts, ok := parseNMLDate(e.Info.LastPlayed); ok {
		t.LastPlayed = ts
	}

	t.Cues = materializeCues(e.CuePoints, version)
	for _, c := range t.Cues {
		if c.Kind == collection.CueKindGridAnchor {
			t.GridAnchorMs = c.StartMs
			t.HasGridAnchor = true
			break
		}
	}

	if t.BPM == 0 {
		for _, raw := range e.CuePoints {
			if raw.Grid != nil && raw.Grid.BPM > 0 {
				t.BPM = raw.Grid.BPM
				break
			}
		}
	}

	return t
}

// cueTypeToKind mirrors the source format's CUE_V2 TYPE enumeration.
func cueTypeToKind(rawType int) collection.CueKind {
	switch rawType {
	case 0:
		return collection.CueKindCue
	case 1:
		return collection.CueKindFadeIn
	case 2:
		return collection.CueKindFadeOut
	case 3:
		return collection.CueKindMemory
	case 4:
		return collection.CueKindGridAnchor
	case 5:
		return collection.CueKindLoop
	default:
		return collection.CueKindCue
	}
}

// hasColourSchema reports whether version's cue schema carries per-cue
// colour attributes.
func hasColourSchema(version int) bool { return version >= 20 }

func materializeCues(raw []rawCueV2, version int) []collection.CuePoint {
	out := make([]collection.CuePoint, 0, len(raw))
	withColour := hasColourSchema(version)
	for i, rc := range raw {
		cue := collection.CuePoint{
			Name:         rc.Name,
			Kind:         cueTypeToKind(rc.Type),
			StartMs:      int64(rc.Start),
			LengthMs:     int64(rc.Len),
			HotCueSlot:   rc.Hotcue,
			DisplayOrder: i,
		}
		if withColour {
			cue.HasColor = true
			cue.ColorRGB = [3]byte{byte(rc.Red), byte(rc.Green), byte(rc.Blue)}
		}
		out = append(out, cue)
	}
	return out
}

// basenameOf is a small readability wrapper around filepath.Base for the
// path-repair step in parse.go.
func basenameOf(p string) string { return filepath.Base(p) }
