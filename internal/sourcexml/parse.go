// Package sourcexml parses a source DJ library's XML collection export into
// the in-memory model of internal/collection. Parsing is deliberately
// tolerant: a malformed ENTRY or an unresolved playlist reference is
// recorded as an Issue and skipped rather than aborting the whole document,
// matching spec.md §4.4's "recovery-mode" contract.
//
// The schema shapes are grounded on the teacher's internal/exporter/traktor.go
// and the djlibgo Traktor collection parser kept in the reference pack; the
// encode/pre-clean/recovery pipeline is new, built to the explicit design
// notes of spec.md §9.
package sourcexml

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/fileindex"
	"github.com/algiers/cratebridge/internal/progress"
)

// progressInterval is how many processed entries elapse between progress
// events (spec.md §4.4 "emit progress every 500 entries").
const progressInterval = 500

// Options configures a Parse call.
type Options struct {
	// FilenameIndex, if set, is consulted to repair a track's Path when the
	// recorded path does not resolve on disk (spec.md §4.3 cross-reference).
	FilenameIndex *fileindex.Index

	// Progress, if set, receives Emit calls during the parse.
	Progress *progress.Sink

	// Logger receives a Warn record for every Issue as it is recorded, so a
	// live tail shows the same information the final issue list reports.
	// Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// Parse reads and parses a complete source collection document from r.
// It always returns a usable *collection.Collection (possibly empty) unless
// the document could not be read or no entries at all could be salvaged, in
// which case it returns a wrapped ErrSourceUnreadable or ErrSourceUnparseable
// respectively alongside any Issues gathered before the failure.
func Parse(ctx context.Context, r io.Reader, opts Options) (*collection.Collection, []Issue, error) {
	started := time.Now()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var issues []Issue
	logIssue := func(iss Issue) {
		issues = append(issues, iss)
		logger.Warn("parse issue", "kind", iss.Kind, "message", iss.Message)
	}

	decoded, _, undetermined := detectEncoding(raw)
	if undetermined {
		logIssue(Issue{Kind: IssueEncodingUndetermined, Message: "could not determine source encoding with confidence, assuming UTF-8"})
	}

	cleaned := preClean(decoded)
	version := parseIntAttr(detectAttr(cleaned, "NML", "VERSION"))

	col := collection.New()

	collectionChunk := extractBetween(cleaned, "COLLECTION")
	if collectionChunk == nil {
		return col, issues, fmt.Errorf("%w: no COLLECTION element found", ErrSourceUnparseable)
	}

	entryChunks := extractElementChunks(collectionChunk, "ENTRY")
	pathIndex := make(map[string]string, len(entryChunks))

	processed := 0
	for _, chunk := range entryChunks {
		if progress.IsCancelled(ctx) {
			return col, issues, ctx.Err()
		}

		var re rawEntry
		if err := decodeChunk(chunk, &re); err != nil {
			logIssue(Issue{Kind: IssueEntryMalformed, Message: err.Error()})
			continue
		}

		track := materializeTrack(re, version)
		if err := repairPath(track, opts.FilenameIndex); err != nil {
			logIssue(Issue{Kind: IssueUnresolvedReference, Message: err.Error()})
		}

		if err := track.Validate(); err != nil {
			logIssue(Issue{Kind: IssueEntryMalformed, Message: err.Error()})
			continue
		}
		if err := col.AddTrack(track); err != nil {
			logIssue(Issue{Kind: IssueEntryMalformed, Message: err.Error()})
			continue
		}
		pathIndex[track.Fingerprint] = track.Fingerprint

		processed++
		if opts.Progress != nil && processed%progressInterval == 0 {
			pct := 0.0
			if len(entryChunks) > 0 {
				pct = float64(processed) / float64(len(entryChunks)) * 100
			}
			opts.Progress.Emit(pct, fmt.Sprintf("parsed %d/%d entries", processed, len(entryChunks)))
		}
	}

	if len(entryChunks) > 0 && len(col.Tracks) == 0 {
		return col, issues, fmt.Errorf("%w: every entry failed to parse", ErrSourceUnparseable)
	}

	if playlistsChunk := extractBetween(cleaned, "PLAYLISTS"); playlistsChunk != nil {
		var rp rawPlaylists
		if err := decodeChunk(playlistsChunk, &rp); err != nil {
			logIssue(Issue{Kind: IssueEntryMalformed, Message: "playlists tree: " + err.Error()})
		} else {
			before := len(issues)
			col.Roots = buildTree(rp.Node, pathIndex, &issues)
			for _, iss := range issues[before:] {
				logger.Warn("parse issue", "kind", iss.Kind, "message", iss.Message)
			}
		}
	}

	col.Stats = collection.Stats{
		SourceVersion: fmt.Sprintf("%d", version),
		EntryCount:    len(col.Tracks),
		ParseTime:     time.Since(started),
	}

	return col, issues, nil
}

// repairPath consults idx by basename for a track whose recorded path does
// not exist on disk. It never errors fatally; an existing path or an index
// miss means the original path is kept.
func repairPath(t *collection.Track, idx *fileindex.Index) error {
	if idx == nil {
		return nil
	}
	if _, err := os.Stat(t.Path); err == nil {
		return nil
	}
	found := idx.Lookup(basenameOf(t.Path))
	if found == "" {
		return nil
	}
	t.Path = found
	return nil
}
