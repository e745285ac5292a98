// Package kelly sizes bets with the Kelly criterion, scaled by the
// user's configured fraction and capped by their max bet percentage.
package kelly

import (
	"math"
	"strconv"

	"edge-analyst/internal/store"
)

// Sizing is the recommendation for a single pick.
type Sizing struct {
	Amount float64 `json:"amount"`
	Units  float64 `json:"units"`
	Method string  `json:"method"`
	Edge   float64 `json:"edge"`
	EV     float64 `json:"ev"`
}

// ToDecimal converts American odds to decimal. Unparseable input falls
// back to -110 (1.91).
func ToDecimal(odds string) float64 {
	n, err := strconv.Atoi(odds)
	if err != nil {
		return 1.91
	}
	if n > 0 {
		return float64(n)/100 + 1
	}
	return 100/math.Abs(float64(n)) + 1
}

// Calculate returns the recommended stake for a pick with the given
// model confidence (0-100) and American odds.
func Calculate(confidence float64, odds string, s store.Settings) Sizing {
	unit := s.UnitSize
	if unit == 0 {
		unit = 10
	}

	// Kelly off or no bankroll configured: flat unit sizing.
	if s.KellyFraction == "off" || s.Bankroll == 0 {
		return Sizing{Amount: unit, Units: 1, Method: "fixed"}
	}

	decOdds := ToDecimal(odds)
	impliedProb := 1 / decOdds
	ourProb := confidence / 100
	edge := ourProb - impliedProb

	if edge <= 0 {
		return Sizing{Method: "no-edge", Edge: edge * 100}
	}

	// f* = (bp - q) / b
	b := decOdds - 1
	kellyPct := (b*ourProb - (1 - ourProb)) / b

	frac := 0.5
	switch s.KellyFraction {
	case "quarter":
		frac = 0.25
	case "half":
		frac = 0.5
	case "full":
		frac = 1.0
	}
	betPct := kellyPct * frac

	maxBetPct := s.MaxBetPct
	if maxBetPct == 0 {
		maxBetPct = 5
	}
	betPct = math.Min(betPct, maxBetPct/100)

	// $5 floor, rounded up to the next $5.
	amount := math.Round(s.Bankroll * betPct)
	amount = math.Max(amount, 5)
	amount = math.Ceil(amount/5) * 5

	units := math.Round(amount/unit*10) / 10

	toWin := amount * b
	ev := ourProb*toWin - (1-ourProb)*amount

	return Sizing{
		Amount: amount,
		Units:  units,
		Method: s.KellyFraction,
		Edge:   edge * 100,
		EV:     math.Round(ev*100) / 100,
	}
}

// Tier labels the strength of a pick for display.
func Tier(confidence, edge float64) string {
	switch {
	case confidence >= 70 && edge >= 5:
		return "strong"
	case confidence >= 60 && edge >= 2:
		return "good"
	case confidence >= 55 && edge > 0:
		return "lean"
	default:
		return "skip"
	}
}
