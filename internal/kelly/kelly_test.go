package kelly

import (
	"math"
	"testing"

	"edge-analyst/internal/store"
)

func TestToDecimal(t *testing.T) {
	cases := []struct {
		odds string
		want float64
	}{
		{"-110", 1.9090909090909092},
		{"+150", 2.5},
		{"150", 2.5},
		{"-200", 1.5},
		{"garbage", 1.91},
		{"", 1.91},
	}
	for _, c := range cases {
		got := ToDecimal(c.odds)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ToDecimal(%q) = %v, want %v", c.odds, got, c.want)
		}
	}
}

func TestCalculateFixedWhenKellyOff(t *testing.T) {
	s := store.Settings{Bankroll: 1000, UnitSize: 25, KellyFraction: "off"}
	got := Calculate(65, "-110", s)
	if got.Method != "fixed" || got.Amount != 25 || got.Units != 1 {
		t.Fatalf("unexpected sizing: %+v", got)
	}
}

func TestCalculateFixedWhenNoBankroll(t *testing.T) {
	got := Calculate(65, "-110", store.Settings{KellyFraction: "half"})
	if got.Method != "fixed" || got.Amount != 10 {
		t.Fatalf("unexpected sizing: %+v", got)
	}
}

func TestCalculateNoEdge(t *testing.T) {
	// 50% confidence against -110 implied 52.4% has no edge.
	s := store.Settings{Bankroll: 1000, KellyFraction: "half"}
	got := Calculate(50, "-110", s)
	if got.Method != "no-edge" {
		t.Fatalf("expected no-edge, got %+v", got)
	}
	if got.Edge >= 0 {
		t.Fatalf("expected negative edge, got %v", got.Edge)
	}
	if got.Amount != 0 {
		t.Fatalf("no-edge sizing should not recommend an amount: %+v", got)
	}
}

func TestCalculateHalfKellyCapped(t *testing.T) {
	// 60% at -110: full kelly is 16% of bankroll, half is 8%, the
	// default 5% max bet cap wins.
	s := store.Settings{Bankroll: 1000, UnitSize: 10, KellyFraction: "half"}
	got := Calculate(60, "-110", s)
	if got.Amount != 50 {
		t.Fatalf("amount = %v, want 50", got.Amount)
	}
	if got.Units != 5 {
		t.Fatalf("units = %v, want 5", got.Units)
	}
	if got.Method != "half" {
		t.Fatalf("method = %q, want half", got.Method)
	}
	if got.Edge < 7.6 || got.Edge > 7.7 {
		t.Fatalf("edge = %v, want ~7.62", got.Edge)
	}
}

func TestCalculateFullKellyUncapped(t *testing.T) {
	s := store.Settings{Bankroll: 1000, UnitSize: 10, KellyFraction: "full", MaxBetPct: 20}
	got := Calculate(60, "-110", s)
	if got.Amount != 160 {
		t.Fatalf("amount = %v, want 160", got.Amount)
	}
	if got.Units != 16 {
		t.Fatalf("units = %v, want 16", got.Units)
	}
}

func TestCalculateFloorAndRounding(t *testing.T) {
	// Tiny bankroll: raw amount lands under $5, floored to $5.
	s := store.Settings{Bankroll: 100, UnitSize: 10, KellyFraction: "quarter"}
	got := Calculate(60, "-110", s)
	if got.Amount != 5 {
		t.Fatalf("amount = %v, want 5", got.Amount)
	}
	if math.Mod(got.Amount, 5) != 0 {
		t.Fatalf("amount %v not a multiple of 5", got.Amount)
	}
}

func TestTier(t *testing.T) {
	cases := []struct {
		confidence, edge float64
		want             string
	}{
		{72, 6, "strong"},
		{70, 5, "strong"},
		{65, 3, "good"},
		{60, 2, "good"},
		{56, 0.5, "lean"},
		{55, 0.1, "lean"},
		{54, 3, "skip"},
		{60, 0, "skip"},
	}
	for _, c := range cases {
		if got := Tier(c.confidence, c.edge); got != c.want {
			t.Errorf("Tier(%v, %v) = %q, want %q", c.confidence, c.edge, got, c.want)
		}
	}
}
