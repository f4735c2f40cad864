// Package tier defines the hardware export profiles shared by the
// analysis-file writer, the database writer, and the conversion driver.
package tier

import "fmt"

// Tier selects which analysis-file variants and cue format a hardware
// export produces (spec.md §6 "tier" option).
type Tier int

const (
	// A is the baseline profile: .DAT only, 3 hot cues, PCPT cues.
	A Tier = iota
	// B adds .EXT (colour waveform), 8 hot cues, PCP2 cues.
	B
	// C adds .2EX (phrase structure) on top of B.
	C
)

// Parse resolves the CLI-facing tier name to a Tier.
func Parse(s string) (Tier, error) {
	switch s {
	case "tier-a", "":
		return A, nil
	case "tier-b":
		return B, nil
	case "tier-c":
		return C, nil
	default:
		return A, fmt.Errorf("tier: unknown tier %q", s)
	}
}

func (t Tier) String() string {
	switch t {
	case A:
		return "tier-a"
	case B:
		return "tier-b"
	case C:
		return "tier-c"
	default:
		return "tier-unknown"
	}
}

// WantsExt reports whether t produces the .EXT colour-waveform file.
func (t Tier) WantsExt() bool { return t >= B }

// Wants2Ex reports whether t produces the .2EX phrase-structure file.
func (t Tier) Wants2Ex() bool { return t == C }

// WantsExtendedCues reports whether t uses the PCP2 (vs PCPT) cue record.
func (t Tier) WantsExtendedCues() bool { return t >= B }

// MaxHotCues is the number of hot-cue pads the tier's hardware exposes.
func (t Tier) MaxHotCues() int {
	if t == A {
		return 3
	}
	return 8
}
