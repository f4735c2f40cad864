// Package convert implements the conversion driver (spec.md §4.9): given a
// parsed collection, a selected node-subtree, a target format, and export
// options, it builds a deduplicated export plan and dispatches to the
// appropriate writer, forwarding progress and honouring cancellation.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/export"
	"github.com/algiers/cratebridge/internal/history"
	"github.com/algiers/cratebridge/internal/interchange"
	"github.com/algiers/cratebridge/internal/keys"
	"github.com/algiers/cratebridge/internal/m3u"
	"github.com/algiers/cratebridge/internal/pdbwriter"
	"github.com/algiers/cratebridge/internal/progress"
	"github.com/algiers/cratebridge/internal/tier"
)

// TargetFormat selects the writer the driver dispatches to.
type TargetFormat string

const (
	TargetCDJHardware     TargetFormat = "cdj-hardware"
	TargetInterchangeXML  TargetFormat = "interchange-xml"
	TargetM3U             TargetFormat = "m3u"
	TargetDatabaseSoftware TargetFormat = "database-software"
)

// ErrCancelled mirrors spec.md §7's CancelRequested non-error termination,
// surfaced as an error so callers can distinguish it from a clean finish.
var ErrCancelled = errors.New("convert: cancelled")

// ErrUnknownTarget is returned for a target-format outside the recognised set.
var ErrUnknownTarget = errors.New("convert: unknown target format")

// Options bundles the option surface spec.md §6 lists for a conversion.
type Options struct {
	TargetFormat TargetFormat
	Tier         tier.Tier
	CopyAudio    bool
	VerifyCopy   bool
	KeyNotation  keys.Format
	Overwrite    bool

	// Logger is forwarded to every writer package (export, pdbwriter) so a
	// single caller-configured logger sees the whole conversion. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger

	// History, if set, receives one conversions row and an export-touch per
	// track fingerprint on a successful run (supplemental feature, spec.md
	// §9; export.pdb itself carries no history-kind-17/18 tables). The
	// caller owns the Store's lifetime (open/close).
	History *history.Store
}

// Result aggregates the outcome of a conversion.
type Result struct {
	TracksConverted int
	BytesCopied     int64
	Issues          []string
	OutputPath      string // the single output file, for non-hardware targets
}

// Run walks selectedRoots (or col.Roots if nil) to build a deduplicated,
// first-seen-order track sequence, assigns plan-order ids, and dispatches
// to the writer opts.TargetFormat names.
func Run(ctx context.Context, col *collection.Collection, selectedRoots []*collection.Node, outputRoot string, opts Options, sink *progress.Sink) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	started := time.Now()
	roots := selectedRoots
	if roots == nil {
		roots = col.Roots
	}

	tracks, err := buildExportPlan(ctx, col, roots)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if sink != nil {
				sink.Cancelled()
			}
			return Result{}, ErrCancelled
		}
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	var res Result
	switch opts.TargetFormat {
	case TargetCDJHardware:
		res, err = runHardware(ctx, outputRoot, tracks, roots, opts, sink)
	case TargetDatabaseSoftware:
		res, err = runDatabaseSoftware(tracks, roots, outputRoot, sink, opts.Logger)
	case TargetInterchangeXML:
		res, err = runInterchange(tracks, roots, outputRoot, opts, sink)
	case TargetM3U:
		res, err = runM3U(tracks, outputRoot, sink)
	default:
		unknownErr := fmt.Errorf("%w: %q", ErrUnknownTarget, opts.TargetFormat)
		if sink != nil {
			sink.Fail(unknownErr)
		}
		return Result{}, unknownErr
	}
	if err != nil {
		return res, err
	}

	if opts.History != nil {
		recordHistory(opts.History, opts.Logger, opts.TargetFormat, opts.Tier, tracks, res, started)
	}
	return res, nil
}

// recordHistory persists the completed run and touches every exported
// track's last-exported timestamp. A ledger write failure is logged, not
// propagated: the conversion itself already succeeded.
func recordHistory(store *history.Store, logger *slog.Logger, target TargetFormat, t tier.Tier, tracks []*collection.Track, res Result, started time.Time) {
	finished := time.Now()
	if err := store.RecordConversion(history.Conversion{
		TargetFormat: string(target),
		Tier:         t.String(),
		TrackCount:   res.TracksConverted,
		IssueCount:   len(res.Issues),
		StartedAt:    started,
		FinishedAt:   finished,
	}); err != nil {
		logger.Warn("history: failed to record conversion", "error", err)
	}

	fingerprints := make([]string, len(tracks))
	for i, tr := range tracks {
		fingerprints[i] = tr.Fingerprint
	}
	if err := store.TouchExported(fingerprints, finished); err != nil {
		logger.Warn("history: failed to touch exported tracks", "error", err)
	}
}

// buildExportPlan walks roots depth-first (preserving source order, per
// collection.Walk) and returns each distinct track the first time its
// fingerprint is reached. Track ids are not stored here: every downstream
// writer assigns id = index+1 from this same slice, so plan order is id
// order (spec.md §5 "track ids are assigned in deterministic export-plan
// order").
func buildExportPlan(ctx context.Context, col *collection.Collection, roots []*collection.Node) ([]*collection.Track, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	var plan []*collection.Track

	var walkErr error
	visited := 0
	collection.Walk(roots, func(n *collection.Node) {
		if walkErr != nil || n.Kind != collection.NodeKindPlaylist {
			return
		}
		for _, fp := range n.TrackFingerprints {
			visited++
			if visited%256 == 0 && progress.IsCancelled(ctx) {
				walkErr = ctx.Err()
				return
			}
			if seen.Contains(fp) {
				continue
			}
			tr, ok := col.Tracks[fp]
			if !ok {
				continue
			}
			seen.Add(fp)
			plan = append(plan, tr)
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return plan, nil
}

func runHardware(ctx context.Context, outputRoot string, tracks []*collection.Track, roots []*collection.Node, opts Options, sink *progress.Sink) (Result, error) {
	res, err := export.Run(ctx, outputRoot, tracks, roots, export.Options{
		Tier:       opts.Tier,
		CopyAudio:  opts.CopyAudio,
		VerifyCopy: opts.VerifyCopy,
		Overwrite:  opts.Overwrite,
		Logger:     opts.Logger,
	}, sink)
	return Result{TracksConverted: res.TracksWritten, BytesCopied: res.BytesCopied, Issues: res.Issues}, err
}

// runDatabaseSoftware writes export.pdb (+ its DeviceSQL.edb twin) alone,
// without the USBANLZ analysis tree or an audio copy: this target is for
// desktop DJ software that reads the database directly and analyses audio
// itself, unlike cdj-hardware's CDJ-class players which need pre-baked
// ANLZ files.
func runDatabaseSoftware(tracks []*collection.Track, roots []*collection.Node, outputRoot string, sink *progress.Sink, logger *slog.Logger) (Result, error) {
	dir := filepath.Join(outputRoot, "rekordbox")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	data, err := pdbwriter.Build(pdbwriter.Input{Tracks: tracks, Roots: roots, Logger: logger})
	if err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	path := filepath.Join(dir, "export.pdb")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "DeviceSQL.edb"), data, 0o644); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	if sink != nil {
		sink.Emit(100, "database written")
		sink.Done()
	}
	return Result{TracksConverted: len(tracks), OutputPath: path}, nil
}

func runInterchange(tracks []*collection.Track, roots []*collection.Node, outputRoot string, opts Options, sink *progress.Sink) (Result, error) {
	data, err := interchange.Build(tracks, roots, interchange.Options{KeyNotation: opts.KeyNotation})
	if err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}
	path := filepath.Join(outputRoot, "collection.xml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	if sink != nil {
		sink.Emit(100, "interchange XML written")
		sink.Done()
	}
	return Result{TracksConverted: len(tracks), OutputPath: path}, nil
}

func runM3U(tracks []*collection.Track, outputRoot string, sink *progress.Sink) (Result, error) {
	data := m3u.Build(tracks)

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}
	path := filepath.Join(outputRoot, "collection.m3u8")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if sink != nil {
			sink.Fail(err)
		}
		return Result{}, err
	}

	if sink != nil {
		sink.Emit(100, "playlist written")
		sink.Done()
	}
	return Result{TracksConverted: len(tracks), OutputPath: path}, nil
}
