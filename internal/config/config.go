// Package config builds the conversion option bundle from command-line
// flags. It is a thin binding, not a subsystem: CLI argument parsing and
// configuration persistence are out-of-scope collaborators (spec.md §1),
// so this stays a flat flag.FlagSet wrapper rather than a layered config
// system.
package config

import (
	"flag"
	"fmt"

	"github.com/algiers/cratebridge/internal/keys"
	"github.com/algiers/cratebridge/internal/tier"
)

// Config is the parsed command line for one conversion run.
type Config struct {
	Source    string // source-XML file path
	MusicRoot string // optional music-root directory for path repair
	Output    string // output root directory
	Target    string // target-format: cdj-hardware | interchange-xml | m3u | database-software

	Tier        tier.Tier
	CopyAudio   bool
	VerifyCopy  bool
	Overwrite   bool
	KeyNotation keys.Format

	HistoryDB string // optional SQLite ledger path; empty disables history

	LogLevel  string // debug | info | warn | error
	LogFormat string // text | json
}

// Parse builds a Config from args (normally os.Args[1:]). It returns an
// error for any flag.FlagSet parse failure or an invalid tier/key-notation
// value; the caller maps that to exit code 1 (invalid arguments).
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("cratebridge", flag.ContinueOnError)

	cfg := &Config{}
	var tierStr, keyStr string

	fs.StringVar(&cfg.Source, "source", "", "source collection XML path (required)")
	fs.StringVar(&cfg.MusicRoot, "music-root", "", "optional music-root directory for relocated-file repair")
	fs.StringVar(&cfg.Output, "output", "", "output root directory (required)")
	fs.StringVar(&cfg.Target, "target", "cdj-hardware", "target-format: cdj-hardware | interchange-xml | m3u | database-software")
	fs.StringVar(&tierStr, "tier", "tier-a", "export tier: tier-a | tier-b | tier-c")
	fs.BoolVar(&cfg.CopyAudio, "copy-audio", false, "copy audio files into Contents/")
	fs.BoolVar(&cfg.VerifyCopy, "verify-copy", false, "SHA-256 verify each copied audio file")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "clear a non-empty PIONEER/ tree before writing")
	fs.StringVar(&keyStr, "key-notation", "open-key", "interchange Tonality notation: open-key | classical | flat-classical")
	fs.StringVar(&cfg.HistoryDB, "history-db", "", "optional SQLite conversion-history ledger path")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug | info | warn | error")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "log format: text | json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Source == "" {
		return nil, fmt.Errorf("config: -source is required")
	}
	if cfg.Output == "" {
		return nil, fmt.Errorf("config: -output is required")
	}

	t, err := tier.Parse(tierStr)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Tier = t

	switch keyStr {
	case "open-key":
		cfg.KeyNotation = keys.FormatOpenKey
	case "classical":
		cfg.KeyNotation = keys.FormatClassical
	case "flat-classical":
		cfg.KeyNotation = keys.FormatFlatClassical
	default:
		return nil, fmt.Errorf("config: unknown key-notation %q", keyStr)
	}

	return cfg, nil
}
