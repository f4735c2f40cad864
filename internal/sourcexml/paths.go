package sourcexml

import (
	"strconv"
	"strings"
	"time"
)

// normalizeDirSeparators turns the source format's "/:" segment separator
// into a plain forward slash. It is a pure substring replace with no
// assumptions about leading/trailing slashes, so it gives identical results
// whether applied to a bare DIR attribute or to a fully combined
// volume+dir+file path string (as PRIMARYKEY carries) — the two must agree
// byte-for-byte after normalization since playlist cross-resolution matches
// one against the other.
func normalizeDirSeparators(s string) string {
	return strings.ReplaceAll(s, "/:", "/")
}

// buildFullPath joins a parsed LOCATION into one slash-separated path the
// same way the source format's own PRIMARYKEY values are built, so the two
// compare equal after canonicalKey. The result is also the track's identity
// key (Fingerprint) and, later, the input to the hardware export's MD5 path
// hash — lower-cased and forward-slash normalized, matching the convention
// the teacher's serato.go already used for deterministic device placement.
func buildFullPath(volume, dir, file string) string {
	return normalizeDirSeparators(volume + dir + file)
}

// canonicalKey lower-cases and forward-slash-normalizes a path for use as a
// lookup key (fingerprint comparison, playlist cross-resolution). The
// display-facing Track.Path keeps its original casing. Raw source-format
// strings (PRIMARYKEY values) must be passed through normalizeDirSeparators
// first; buildFullPath already does this for assembled paths.
func canonicalKey(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.ToLower(p)
}

// nmlDateLayouts are the date formats seen across source versions.
var nmlDateLayouts = []string{"2006/1/2", "2006-01-02", "2006/01/02"}

func parseNMLDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range nmlDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// bucketRating maps a 0..255 raw ranking onto the 0..5 star scale used
// throughout the collection model, rounding to the nearest bucket.
func bucketRating(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > 255 {
		raw = 255
	}
	bucket := (raw + 25) / 51
	if bucket > 5 {
		bucket = 5
	}
	return bucket
}

// parseIntAttr is a defensive int parse for attributes that are sometimes
// left blank by the source application.
func parseIntAttr(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
