// Package m3u writes the extended M3U playlist format for the `m3u`
// target-format: a thin text emission, deliberately not built out further
// (spec.md's Non-goals keep playlist-format breadth out of scope beyond
// what the source and destination formats already require).
//
// Grounded on internal/exporter/exporter.go's writeM3U.
package m3u

import (
	"fmt"
	"strings"

	"github.com/algiers/cratebridge/internal/collection"
)

// Build renders tracks (in export-plan order) as an extended M3U playlist.
func Build(tracks []*collection.Track) []byte {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, t := range tracks {
		seconds := t.DurationSec
		title := t.Title
		if title == "" {
			title = t.Path
		}
		if t.Artist != "" {
			title = fmt.Sprintf("%s - %s", t.Artist, title)
		}
		b.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", seconds, title))
		b.WriteString(t.Path)
		b.WriteString("\n")
	}
	return []byte(b.String())
}
