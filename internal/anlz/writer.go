// Files assembly: ties the section builders together into the three
// tier-gated analysis files a single track can produce.
package anlz

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/tier"
)

// ErrWriteFailed is returned when a track cannot produce any analysis file
// at all (e.g. an empty path).
var ErrWriteFailed = errors.New("anlz: write failed")

// Files is the set of analysis files produced for one track, keyed by the
// PIONEER-relative path they are written at.
type Files struct {
	DAT      []byte
	DATPath  string
	EXT      []byte // nil unless the tier wants it
	EXTPath  string
	TwoEX    []byte // nil unless the tier wants it
	TwoEXPath string
}

// Build produces the analysis files for track at the given tier. PQTZ is
// clipped to the track duration, taken from track.DurationSecF (falling
// back to DurationSec). logger receives a Warn record for an empty track
// path, which fails the track with ErrWriteFailed, and for a beat grid that
// could not be built, which leaves PQTZ out. A nil logger defaults to
// slog.Default().
func Build(track *collection.Track, t tier.Tier, logger *slog.Logger) (Files, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if track.Path == "" {
		logger.Warn("analysis build skipped: empty track path", "fingerprint", track.Fingerprint)
		return Files{}, ErrWriteFailed
	}

	filename := filepath.Base(track.Path)
	durationMs := int64(track.DurationSecF * 1000)
	if durationMs == 0 {
		durationMs = int64(track.DurationSec) * 1000
	}

	ppth := section{tag: "PPTH", headerLen: genericHeaderLen, payload: buildPPTH(filename)}.bytes()
	pwav := section{tag: "PWAV", headerLen: genericHeaderLen + 4, payload: buildPWAV()}.bytes()

	var pqtz []byte
	if track.HasGridAnchor || track.BPM > 0 {
		anchor := track.GridAnchorMs
		if grid := buildPQTZ(anchor, track.BPM, durationMs); grid != nil {
			pqtz = section{tag: "PQTZ", headerLen: genericHeaderLen + 8, payload: grid}.bytes()
		} else {
			logger.Warn("beat grid omitted: could not derive PQTZ payload", "fingerprint", track.Fingerprint, "bpm", track.BPM)
		}
	}

	memoryCues, hotCues := splitCues(track.Cues)
	extendedCues := t.WantsExtendedCues()

	var pcobSections [][]byte
	if len(memoryCues) > 0 {
		pcobSections = append(pcobSections, section{
			tag: "PCOB", headerLen: genericHeaderLen + 10,
			payload: buildPCOB(pcobKindMemory, memoryCues, extendedCues),
		}.bytes())
	}
	if len(hotCues) > 0 {
		pcobSections = append(pcobSections, section{
			tag: "PCOB", headerLen: genericHeaderLen + 10,
			payload: buildPCOB(pcobKindHot, hotCues, extendedCues),
		}.bytes())
	}

	datSections := [][]byte{ppth, pwav}
	if pqtz != nil {
		datSections = append(datSections, pqtz)
	}
	datSections = append(datSections, pcobSections...)

	files := Files{
		DAT:     assembleContainer(datSections...),
		DATPath: RelativePath(track.Path, "DAT"),
	}

	if t.WantsExt() {
		colour := section{tag: colourWaveformTag, headerLen: genericHeaderLen + 4, payload: buildColourWaveform()}.bytes()
		files.EXT = assembleContainer(colour)
		files.EXTPath = RelativePath(track.Path, "EXT")
	}

	if t.Wants2Ex() {
		pssi := section{tag: "PSSI", headerLen: genericHeaderLen + 2, payload: buildPSSI()}.bytes()
		files.TwoEX = assembleContainer(pssi)
		files.TwoEXPath = RelativePath(track.Path, "2EX")
	}

	return files, nil
}

func splitCues(cues []collection.CuePoint) (memory, hot []collection.CuePoint) {
	for _, c := range cues {
		if c.IsHot() {
			hot = append(hot, c)
		} else {
			memory = append(memory, c)
		}
	}
	return memory, hot
}
