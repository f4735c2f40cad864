// Command cratebridge is the thin CLI binding around the conversion
// engine: parse the source collection, optionally repair paths against a
// music root, and dispatch to the chosen target-format writer. CLI parsing
// itself is out of scope for the engine (spec.md §1); this binary exists
// only to wire flags to the internal packages and translate errors to the
// exit-code taxonomy spec.md §6 defines.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/algiers/cratebridge/internal/config"
	"github.com/algiers/cratebridge/internal/convert"
	"github.com/algiers/cratebridge/internal/fileindex"
	"github.com/algiers/cratebridge/internal/history"
	"github.com/algiers/cratebridge/internal/progress"
	"github.com/algiers/cratebridge/internal/sourcexml"
)

// Exit codes (spec.md §6): 0 success; 1 invalid arguments; 2 input
// unreadable; 3 input unparseable; 4 output not writable; 5 cancelled; 6
// internal error.
const (
	exitSuccess = iota
	exitInvalidArgs
	exitInputUnreadable
	exitInputUnparseable
	exitOutputNotWritable
	exitCancelled
	exitInternalError
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInvalidArgs
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling", "signal", sig)
		cancel()
	}()

	src, err := os.Open(cfg.Source)
	if err != nil {
		logger.Error("cannot open source collection", "path", cfg.Source, "error", err)
		return exitInputUnreadable
	}
	defer src.Close()

	var idx *fileindex.Index
	if cfg.MusicRoot != "" {
		idx, err = fileindex.Build(cfg.MusicRoot, fileindex.DefaultCap)
		if err != nil {
			logger.Warn("music-root index unusable, path repair disabled", "path", cfg.MusicRoot, "error", err)
			idx = nil
		} else {
			logger.Info("built filename index", "root", cfg.MusicRoot, "entries", idx.Len())
		}
	}

	sink := progress.NewSink()
	go logProgress(logger, sink)

	col, issues, err := sourcexml.Parse(ctx, src, sourcexml.Options{
		FilenameIndex: idx,
		Progress:      sink,
		Logger:        logger,
	})
	if err != nil {
		switch {
		case errIsUnreadable(err):
			logger.Error("source unreadable", "error", err)
			return exitInputUnreadable
		default:
			logger.Error("source unparseable", "error", err, "issues", len(issues))
			return exitInputUnparseable
		}
	}
	logger.Info("parsed source collection", "tracks", len(col.Tracks), "issues", len(issues))

	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		logger.Error("output root not writable", "path", cfg.Output, "error", err)
		return exitOutputNotWritable
	}

	var hist *history.Store
	if cfg.HistoryDB != "" {
		hist, err = history.Open(cfg.HistoryDB, logger)
		if err != nil {
			logger.Warn("history ledger unavailable, continuing without it", "path", cfg.HistoryDB, "error", err)
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	res, err := convert.Run(ctx, col, nil, cfg.Output, convert.Options{
		TargetFormat: convert.TargetFormat(cfg.Target),
		Tier:         cfg.Tier,
		CopyAudio:    cfg.CopyAudio,
		VerifyCopy:   cfg.VerifyCopy,
		KeyNotation:  cfg.KeyNotation,
		Overwrite:    cfg.Overwrite,
		Logger:       logger,
		History:      hist,
	}, sink)
	if err != nil {
		switch {
		case errIsCancelled(err):
			logger.Warn("conversion cancelled")
			return exitCancelled
		default:
			logger.Error("conversion failed", "error", err)
			return exitInternalError
		}
	}

	logger.Info("conversion complete",
		"tracks", res.TracksConverted,
		"bytes_copied", res.BytesCopied,
		"issues", len(res.Issues),
		"output", cfg.Output,
	)
	return exitSuccess
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// logProgress drains the sink and logs each event at Info, until the
// terminal event arrives.
func logProgress(logger *slog.Logger, sink *progress.Sink) {
	events := sink.Events()
	terminal := sink.TerminalEvents()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			logger.Debug("progress", "percent", ev.Percent, "message", ev.Message)
		case <-terminal:
			return
		}
	}
}

func errIsUnreadable(err error) bool {
	return errors.Is(err, sourcexml.ErrSourceUnreadable)
}

func errIsCancelled(err error) bool {
	return errors.Is(err, convert.ErrCancelled) || errors.Is(err, context.Canceled)
}
