// Package export orchestrates a full hardware export: directory-skeleton
// creation, optional audio copy + verify, per-track analysis-file
// generation, database writing, and the EXPORT.INFO marker — the sequence
// spec.md §4.7 describes. It is cancellable at every loop boundary and
// removes its own partial PIONEER/ tree on cancellation or fatal error.
//
// Grounded on internal/exporter/exporter.go's WriteGeneric (directory
// creation, per-artifact writers, SHA-256 checksum verification via
// internal/exporter/verify.go's FileSHA256) generalized from a flat
// artifact bundle into the PIONEER/ hardware layout.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/algiers/cratebridge/internal/anlz"
	"github.com/algiers/cratebridge/internal/collection"
	"github.com/algiers/cratebridge/internal/pathsafe"
	"github.com/algiers/cratebridge/internal/pdbwriter"
	"github.com/algiers/cratebridge/internal/progress"
	"github.com/algiers/cratebridge/internal/tier"
)

// ConverterName and ConverterVersion are stamped into EXPORT.INFO.
const (
	ConverterName    = "cratebridge"
	ConverterVersion = "1.0"
)

// Sentinel errors from spec.md §7's taxonomy that this package can return.
var (
	ErrOutputNotWritable = errors.New("export: output root not writable")
	ErrNonEmptyOutput    = errors.New("export: PIONEER/ already exists and is non-empty")
	ErrVerifyMismatch    = errors.New("export: copied audio checksum mismatch")
	ErrWriteFailed       = errors.New("export: write failed")
	ErrCancelled         = errors.New("export: cancelled")
)

// analysisProgressBatch batches analysis-file progress per 100 tracks
// (spec.md §4.7 step 4).
const analysisProgressBatch = 100

// Options configures one export run.
type Options struct {
	Tier       tier.Tier
	CopyAudio  bool
	VerifyCopy bool
	Overwrite  bool

	// Logger receives Info records at each stage boundary and a Warn
	// record for every per-track issue collected in Result.Issues.
	// Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// Result aggregates the outcome of a completed or aborted export.
type Result struct {
	TracksWritten int
	BytesCopied   int64
	Issues        []string
}

// Run performs the export sequence described by spec.md §4.7 against
// outputRoot, for the tracks in planOrder (already deduplicated and in
// export-plan order) and the node tree roots (already pruned of unreachable
// entries). sink, if non-nil, receives percentage/message tuples and
// exactly one terminal event. ctx cancellation is polled once every
// analysisProgressBatch tracks during analysis, between audio-copy files,
// and before the database write.
func Run(ctx context.Context, outputRoot string, tracks []*collection.Track, roots []*collection.Node, opts Options, sink *progress.Sink) (Result, error) {
	result := Result{}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("export starting", "tracks", len(tracks), "tier", opts.Tier.String(), "output", outputRoot)

	pioneerDir := filepath.Join(outputRoot, "PIONEER")
	if err := validateOutputRoot(outputRoot, pioneerDir, opts.Overwrite); err != nil {
		emitFail(sink, err)
		return result, err
	}

	if err := createSkeleton(outputRoot); err != nil {
		emitFail(sink, err)
		return result, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	cleanupOnFailure := func(cause error) (Result, error) {
		_ = os.RemoveAll(pioneerDir)
		if errors.Is(cause, context.Canceled) {
			emitCancelled(sink)
			return result, ErrCancelled
		}
		emitFail(sink, cause)
		return result, cause
	}

	if opts.CopyAudio {
		logger.Info("copying audio", "tracks", len(tracks))
		copied, bytesCopied, err := copyAudio(ctx, outputRoot, tracks, opts.VerifyCopy, sink, logger)
		if err != nil {
			return cleanupOnFailure(err)
		}
		result.BytesCopied = bytesCopied
		result.Issues = append(result.Issues, copied.issues...)
		logger.Info("audio copy complete", "bytes", bytesCopied, "issues", len(copied.issues))
	}

	logger.Info("writing analysis files", "tracks", len(tracks), "tier", opts.Tier.String())
	if err := writeAnalysisFiles(ctx, outputRoot, tracks, opts.Tier, sink, logger); err != nil {
		return cleanupOnFailure(err)
	}

	if err := checkCancel(ctx); err != nil {
		return cleanupOnFailure(err)
	}

	dbBytes, err := pdbwriter.Build(pdbwriter.Input{Tracks: tracks, Roots: roots, Logger: logger})
	if err != nil {
		return cleanupOnFailure(fmt.Errorf("%w: %v", ErrWriteFailed, err))
	}
	if err := writeDatabase(outputRoot, dbBytes); err != nil {
		return cleanupOnFailure(fmt.Errorf("%w: %v", ErrWriteFailed, err))
	}
	logger.Info("database written", "bytes", len(dbBytes))

	if err := writeExportInfo(outputRoot, opts.Tier); err != nil {
		return cleanupOnFailure(fmt.Errorf("%w: %v", ErrWriteFailed, err))
	}

	result.TracksWritten = len(tracks)
	logger.Info("export complete", "tracks", result.TracksWritten)
	if sink != nil {
		sink.Emit(100, "export complete")
		sink.Done()
	}
	return result, nil
}

func validateOutputRoot(outputRoot, pioneerDir string, overwrite bool) error {
	info, err := os.Stat(outputRoot)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputNotWritable, outputRoot)
	}
	probe := filepath.Join(outputRoot, ".cratebridge-write-probe")
	if f, err := os.Create(probe); err != nil {
		return fmt.Errorf("%w: %s", ErrOutputNotWritable, outputRoot)
	} else {
		f.Close()
		os.Remove(probe)
	}

	entries, err := os.ReadDir(pioneerDir)
	if err == nil && len(entries) > 0 && !overwrite {
		return ErrNonEmptyOutput
	}
	if overwrite {
		_ = os.RemoveAll(pioneerDir)
	}
	return nil
}

func createSkeleton(outputRoot string) error {
	dirs := []string{
		filepath.Join(outputRoot, "PIONEER"),
		filepath.Join(outputRoot, "PIONEER", "rekordbox"),
		filepath.Join(outputRoot, "PIONEER", "USBANLZ"),
		filepath.Join(outputRoot, "Contents"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

type copyResult struct {
	issues []string
}

// copyAudio sanitises each track's basename, copies it into Contents/,
// optionally verifies the copy by SHA-256, and rewrites the track's Path to
// the new location. A per-track copy failure is a warning
// (spec.md §7 AudioCopyFailed): the track keeps its original path and the
// loop continues.
func copyAudio(ctx context.Context, outputRoot string, tracks []*collection.Track, verify bool, sink *progress.Sink, logger *slog.Logger) (copyResult, int64, error) {
	var cr copyResult
	var totalBytes int64
	contentsDir := filepath.Join(outputRoot, "Contents")

	logIssue := func(msg string) {
		cr.issues = append(cr.issues, msg)
		logger.Warn("audio copy issue", "message", msg)
	}

	for i, tr := range tracks {
		if err := checkCancel(ctx); err != nil {
			return cr, totalBytes, err
		}

		dest, err := sanitizedDest(contentsDir, tr.Path)
		if err != nil {
			logIssue(fmt.Sprintf("AudioCopyFailed: %s: %v", tr.Path, err))
			continue
		}

		n, err := copyFile(tr.Path, dest)
		if err != nil {
			logIssue(fmt.Sprintf("AudioCopyFailed: %s: %v", tr.Path, err))
			continue
		}
		totalBytes += n

		if verify {
			if err := verifyCopy(tr.Path, dest); err != nil {
				return cr, totalBytes, err
			}
		}

		if sink != nil {
			sink.Emit(percentOf(i, len(tracks)), fmt.Sprintf("copied %s", filepath.Base(dest)))
		}

		tr.Path = dest
	}
	return cr, totalBytes, nil
}

func sanitizedDest(contentsDir, srcPath string) (string, error) {
	base := filepath.Base(srcPath)
	return pathsafe.FullPath(contentsDir, base)
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, err
	}
	return n, out.Sync()
}

func verifyCopy(src, dest string) error {
	srcSum, err := fileSHA256(src)
	if err != nil {
		return err
	}
	destSum, err := fileSHA256(dest)
	if err != nil {
		return err
	}
	if srcSum != destSum {
		return fmt.Errorf("%w: %s", ErrVerifyMismatch, dest)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeAnalysisFiles invokes internal/anlz for every track, batching
// progress reports per 100 tracks (spec.md §4.7 step 4).
func writeAnalysisFiles(ctx context.Context, outputRoot string, tracks []*collection.Track, t tier.Tier, sink *progress.Sink, logger *slog.Logger) error {
	usbanlzDir := filepath.Join(outputRoot, "PIONEER", "USBANLZ")

	for i, tr := range tracks {
		if i%analysisProgressBatch == 0 {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			if sink != nil {
				sink.Emit(percentOf(i, len(tracks)), fmt.Sprintf("analysing track %d/%d", i+1, len(tracks)))
			}
		}

		files, err := anlz.Build(tr, t, logger)
		if err != nil {
			// An unwritable analysis file degrades to a skipped track for
			// hardware output, not a fatal export failure.
			logger.Warn("analysis build failed, skipping track", "path", tr.Path, "error", err)
			continue
		}
		if err := writeAnalysisFile(usbanlzDir, files.DATPath, files.DAT); err != nil {
			return err
		}
		if files.EXT != nil {
			if err := writeAnalysisFile(usbanlzDir, files.EXTPath, files.EXT); err != nil {
				return err
			}
		}
		if files.TwoEX != nil {
			if err := writeAnalysisFile(usbanlzDir, files.TwoEXPath, files.TwoEX); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeAnalysisFile(usbanlzDir, relPath string, data []byte) error {
	if relPath == "" {
		return nil
	}
	// RelativePath is rooted at "PIONEER/USBANLZ/...", so strip that prefix
	// since usbanlzDir already names PIONEER/USBANLZ.
	rel := relPath
	if trimmed, ok := trimPrefix(rel, "PIONEER/USBANLZ/"); ok {
		rel = trimmed
	}
	full := filepath.Join(usbanlzDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func trimPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return s, false
}

// writeDatabase writes export.pdb and its byte-identical DeviceSQL.edb
// twin (spec.md §9's documented "possible source bug": the original
// software apparently wrote the same database under two filenames, and
// this contract preserves that rather than silently dropping the
// duplicate).
func writeDatabase(outputRoot string, data []byte) error {
	rekordboxDir := filepath.Join(outputRoot, "PIONEER", "rekordbox")
	if err := os.WriteFile(filepath.Join(rekordboxDir, "export.pdb"), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(rekordboxDir, "DeviceSQL.edb"), data, 0o644)
}

func writeExportInfo(outputRoot string, t tier.Tier) error {
	info := fmt.Sprintf("CONVERTER=%s\nVERSION=%s\nDATE=%s\nTIER=%s\n",
		ConverterName, ConverterVersion, time.Now().UTC().Format("2006-01-02"), t.String())
	return os.WriteFile(filepath.Join(outputRoot, "PIONEER", "EXPORT.INFO"), []byte(info), 0o644)
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func percentOf(i, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(i) / float64(total) * 100
}

func emitFail(sink *progress.Sink, err error) {
	if sink != nil {
		sink.Fail(err)
	}
}

func emitCancelled(sink *progress.Sink) {
	if sink != nil {
		sink.Cancelled()
	}
}
