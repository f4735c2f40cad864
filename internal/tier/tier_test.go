package tier

import "testing"

func TestParseRoundTripsWithString(t *testing.T) {
	cases := []struct {
		in   string
		want Tier
	}{
		{"tier-a", A},
		{"", A},
		{"tier-b", B},
		{"tier-c", C},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := Parse("tier-z"); err == nil {
		t.Fatal("Parse(\"tier-z\") = nil error, want error")
	}
}

func TestTierPredicates(t *testing.T) {
	cases := []struct {
		t               Tier
		wantExt         bool
		want2Ex         bool
		wantExtendedCue bool
		maxHotCues      int
	}{
		{A, false, false, false, 3},
		{B, true, false, true, 8},
		{C, true, true, true, 8},
	}
	for _, c := range cases {
		if got := c.t.WantsExt(); got != c.wantExt {
			t.Errorf("%v.WantsExt() = %v, want %v", c.t, got, c.wantExt)
		}
		if got := c.t.Wants2Ex(); got != c.want2Ex {
			t.Errorf("%v.Wants2Ex() = %v, want %v", c.t, got, c.want2Ex)
		}
		if got := c.t.WantsExtendedCues(); got != c.wantExtendedCue {
			t.Errorf("%v.WantsExtendedCues() = %v, want %v", c.t, got, c.wantExtendedCue)
		}
		if got := c.t.MaxHotCues(); got != c.maxHotCues {
			t.Errorf("%v.MaxHotCues() = %d, want %d", c.t, got, c.maxHotCues)
		}
	}
}

func TestStringUnknownTier(t *testing.T) {
	var unknown Tier = 99
	if got := unknown.String(); got != "tier-unknown" {
		t.Fatalf("String() = %q, want %q", got, "tier-unknown")
	}
}
