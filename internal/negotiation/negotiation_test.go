package negotiation

import (
	"strings"
	"testing"
)

func mustDecide(t *testing.T, listed, counter float64, round int, p Policy) Outcome {
	t.Helper()
	out, err := Decide(listed, counter, round, p)
	if err != nil {
		t.Fatalf("Decide(%v, %v, %d): %v", listed, counter, round, err)
	}
	return out
}

func TestDecide_CounterWithinCeiling(t *testing.T) {
	// listed=2100, counter=2400, ceiling=2625: counter above listed but
	// within policy at round 1 gets a counteroffer between the two.
	out := mustDecide(t, 2100, 2400, 1, DefaultPolicy())

	if out.Decision != Counter {
		t.Fatalf("decision = %q, want counter", out.Decision)
	}
	if out.NextOffer <= 2100 || out.NextOffer >= 2400 {
		t.Errorf("next offer = %v, want strictly between 2100 and 2400", out.NextOffer)
	}
	if out.RoundsLeft != 2 {
		t.Errorf("rounds left = %d, want 2", out.RoundsLeft)
	}
	if !strings.Contains(out.Message, "2 round(s) left") {
		t.Errorf("message %q should state rounds remaining", out.Message)
	}
}

func TestDecide_SecondRoundMovesCloser(t *testing.T) {
	p := DefaultPolicy()
	r1 := mustDecide(t, 2100, 2400, 1, p)
	r2 := mustDecide(t, 2100, 2300, 2, p)

	gap1 := 2400 - r1.NextOffer
	gap2 := 2300 - r2.NextOffer
	if gap2 >= gap1 {
		t.Errorf("round 2 gap %v should be smaller than round 1 gap %v", gap2, gap1)
	}
}

func TestDecide_RejectAboveCeiling(t *testing.T) {
	// ceiling = 2100 * 1.25 = 2625
	out := mustDecide(t, 2100, 2800, 1, DefaultPolicy())

	if out.Decision != Reject {
		t.Fatalf("decision = %q, want reject", out.Decision)
	}
	if out.NextOffer != 2625 {
		t.Errorf("next offer = %v, want best-and-final 2625", out.NextOffer)
	}
	if !strings.Contains(out.Message, "2625") {
		t.Errorf("message %q should carry the best-and-final figure", out.Message)
	}
}

func TestDecide_RejectFiresAtAnyRound(t *testing.T) {
	// The ceiling is an absolute guardrail, not round-gated.
	for round := 1; round <= 5; round++ {
		out := mustDecide(t, 2100, 2800, round, DefaultPolicy())
		if out.Decision != Reject {
			t.Errorf("round %d: decision = %q, want reject", round, out.Decision)
		}
	}
}

func TestDecide_AcceptAtOrBelowListed(t *testing.T) {
	tests := []struct {
		name    string
		counter float64
		want    float64
	}{
		{"below listed", 2000, 2000},
		{"equal to listed", 2100, 2100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustDecide(t, 2100, tt.counter, 1, DefaultPolicy())
			if out.Decision != Accept {
				t.Fatalf("decision = %q, want accept", out.Decision)
			}
			if out.NextOffer != tt.want {
				t.Errorf("next offer = %v, want %v", out.NextOffer, tt.want)
			}
		})
	}
}

func TestDecide_TerminalRoundNeverCounters(t *testing.T) {
	p := DefaultPolicy()
	for round := p.MaxRounds; round <= p.MaxRounds+3; round++ {
		for _, counter := range []float64{1500, 2100, 2400, 2625, 3000} {
			out := mustDecide(t, 2100, counter, round, p)
			if out.Decision == Counter {
				t.Errorf("round %d counter %v: got counter decision at terminal round", round, counter)
			}
		}
	}
}

func TestDecide_StaleRoundResolves(t *testing.T) {
	// A round past MaxRounds is treated as terminal, not an error.
	out := mustDecide(t, 2100, 2400, 9, DefaultPolicy())
	if out.Decision != Accept {
		t.Errorf("decision = %q, want accept for stale round within ceiling", out.Decision)
	}
	if out.NextOffer != 2400 {
		t.Errorf("next offer = %v, want 2400", out.NextOffer)
	}
}

func TestDecide_CeilingInvariant(t *testing.T) {
	p := DefaultPolicy()
	listed := 2100.0
	ceiling := p.Ceiling(listed)
	for round := 1; round <= 5; round++ {
		for counter := 100.0; counter <= 4000; counter += 137 {
			out := mustDecide(t, listed, counter, round, p)
			if out.NextOffer > ceiling {
				t.Fatalf("round %d counter %v: next offer %v exceeds ceiling %v",
					round, counter, out.NextOffer, ceiling)
			}
		}
	}
}

func TestDecide_MonotonicConvergence(t *testing.T) {
	// Fixed counter above listed but within ceiling: successive offers are
	// non-decreasing and never overshoot the ceiling.
	p := DefaultPolicy()
	listed, counter := 2100.0, 2500.0
	prev := 0.0
	for round := 1; round <= p.MaxRounds; round++ {
		out := mustDecide(t, listed, counter, round, p)
		if out.NextOffer < prev {
			t.Errorf("round %d: offer %v decreased from %v", round, out.NextOffer, prev)
		}
		if out.NextOffer > p.Ceiling(listed) {
			t.Errorf("round %d: offer %v overshoots ceiling", round, out.NextOffer)
		}
		prev = out.NextOffer
	}
}

func TestDecide_Deterministic(t *testing.T) {
	p := Policy{CeilingPct: 0.18, MaxRounds: 4}
	first := mustDecide(t, 1850, 2100, 2, p)
	for i := 0; i < 10; i++ {
		again := mustDecide(t, 1850, 2100, 2, p)
		if again != first {
			t.Fatalf("repeat invocation %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestDecide_WholeDollarOffers(t *testing.T) {
	p := Policy{CeilingPct: 0.333, MaxRounds: 3}
	for round := 1; round <= 4; round++ {
		out := mustDecide(t, 1999.99, 2500.55, round, p)
		if out.NextOffer != float64(int64(out.NextOffer)) {
			t.Errorf("round %d: next offer %v is not a whole dollar amount", round, out.NextOffer)
		}
	}
}

func TestDecide_InputContractViolations(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name    string
		listed  float64
		counter float64
		round   int
	}{
		{"zero listed", 0, 2000, 1},
		{"negative listed", -100, 2000, 1},
		{"zero counter", 2100, 0, 1},
		{"negative counter", 2100, -50, 1},
		{"zero round", 2100, 2000, 0},
		{"negative round", 2100, 2000, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decide(tt.listed, tt.counter, tt.round, p); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDecide_BadPolicy(t *testing.T) {
	if _, err := Decide(2100, 2200, 1, Policy{CeilingPct: 0.25, MaxRounds: 0}); err == nil {
		t.Error("expected error for zero max rounds")
	}
	if _, err := Decide(2100, 2200, 1, Policy{CeilingPct: -0.1, MaxRounds: 3}); err == nil {
		t.Error("expected error for negative ceiling pct")
	}
}

func TestDecide_AcceptWhenBlendMeetsCounter(t *testing.T) {
	// A counter barely above listed: the blended offer reaches it, so accept
	// at the carrier's number rather than countering past it.
	out := mustDecide(t, 2100, 2101, 1, DefaultPolicy())
	if out.Decision != Accept {
		t.Fatalf("decision = %q, want accept", out.Decision)
	}
	if out.NextOffer != 2101 {
		t.Errorf("next offer = %v, want 2101", out.NextOffer)
	}
}

func TestPolicy_Ceiling(t *testing.T) {
	p := Policy{CeilingPct: 0.25, MaxRounds: 3}
	if got := p.Ceiling(2100); got != 2625 {
		t.Errorf("Ceiling(2100) = %v, want 2625", got)
	}
}
