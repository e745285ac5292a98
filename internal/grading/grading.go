// Package grading settles tracked game bets against final scores.
package grading

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"edge-analyst/internal/store"
)

// GameScore is one completed game's final score, teams as the site's
// abbreviations.
type GameScore struct {
	Date      string
	AwayTeam  string
	HomeTeam  string
	AwayScore int
	HomeScore int
}

// Matchup renders the score's game in tracked-bet matchup form.
func (g GameScore) Matchup() string { return g.AwayTeam + " @ " + g.HomeTeam }

// Source supplies recent final scores for one sport.
type Source interface {
	Scores(ctx context.Context, sport string) ([]GameScore, error)
}

// Grade settles a single bet against its game's final score. ok is
// false when the bet cannot be graded from a score alone: props need
// player stats, pushes stay pending, and unknown types are skipped.
func Grade(b store.TrackedBet, s GameScore) (result string, ok bool) {
	switch strings.ToLower(b.Type) {
	case "spread":
		return gradeSpread(b, s)
	case "total":
		return gradeTotal(b, s)
	case "moneyline", "ml":
		return gradeMoneyline(b, s)
	default:
		return "", false
	}
}

func gradeSpread(b store.TrackedBet, s GameScore) (string, bool) {
	team, line, ok := splitSpreadPick(b.Pick)
	if !ok {
		line = b.Line
		team = strings.TrimSpace(b.Pick)
	}
	var margin float64
	switch team {
	case s.HomeTeam:
		margin = float64(s.HomeScore-s.AwayScore) + line
	case s.AwayTeam:
		margin = float64(s.AwayScore-s.HomeScore) + line
	default:
		return "", false
	}
	if margin > 0 {
		return "win", true
	}
	if margin < 0 {
		return "loss", true
	}
	return "", false // push stays pending
}

// splitSpreadPick parses picks of the form "LAL -3.5".
func splitSpreadPick(pick string) (team string, line float64, ok bool) {
	i := strings.LastIndex(strings.TrimSpace(pick), " ")
	if i < 0 {
		return "", 0, false
	}
	team = strings.TrimSpace(pick[:i])
	line, err := strconv.ParseFloat(strings.TrimSpace(pick[i+1:]), 64)
	if err != nil {
		return "", 0, false
	}
	return team, line, true
}

func gradeTotal(b store.TrackedBet, s GameScore) (string, bool) {
	actual := float64(s.AwayScore + s.HomeScore)
	over := strings.HasPrefix(strings.ToLower(strings.TrimSpace(b.Pick)), "over")
	under := strings.HasPrefix(strings.ToLower(strings.TrimSpace(b.Pick)), "under")
	if !over && !under {
		return "", false
	}
	if actual == b.Line {
		return "", false // push
	}
	if over == (actual > b.Line) {
		return "win", true
	}
	return "loss", true
}

func gradeMoneyline(b store.TrackedBet, s GameScore) (string, bool) {
	pick := strings.TrimSpace(b.Pick)
	var won bool
	switch pick {
	case s.HomeTeam:
		won = s.HomeScore > s.AwayScore
	case s.AwayTeam:
		won = s.AwayScore > s.HomeScore
	default:
		return "", false
	}
	if won {
		return "win", true
	}
	return "loss", true
}

// Grader runs the settlement pass over all ungraded past bets.
type Grader struct {
	store  store.Store
	source Source
	log    *zap.Logger
	now    func() time.Time
}

func New(s store.Store, src Source, log *zap.Logger) *Grader {
	return &Grader{store: s, source: src, log: log, now: time.Now}
}

// Run grades every ungraded bet from days before today whose game has a
// final score. Returns how many bets were settled.
func (g *Grader) Run(ctx context.Context) (int, error) {
	today := g.now().Format("2006-01-02")
	bets, err := g.store.ListUngradedBets(ctx, today)
	if err != nil {
		return 0, err
	}
	if len(bets) == 0 {
		return 0, nil
	}

	// One score fetch per sport, even if many bets share it.
	scoresBySport := make(map[string][]GameScore)
	graded := 0
	for _, b := range bets {
		sport := strings.ToLower(b.Sport)
		scores, fetched := scoresBySport[sport]
		if !fetched {
			scores, err = g.source.Scores(ctx, sport)
			if err != nil {
				g.log.Warn("score fetch failed", zap.String("sport", sport), zap.Error(err))
				scores = nil
			}
			scoresBySport[sport] = scores
		}

		score, found := matchScore(scores, b)
		if !found {
			continue
		}
		result, ok := Grade(b, score)
		if !ok {
			continue
		}
		if err := g.store.GradeBet(ctx, b.ID, result); err != nil {
			g.log.Warn("grade write failed", zap.String("bet", b.ID), zap.Error(err))
			continue
		}
		graded++
	}
	if graded > 0 {
		g.log.Info("graded tracked bets", zap.Int("count", graded))
	}
	return graded, nil
}

// matchScore prefers an exact date match but falls back to matchup
// alone, since score feed dates are UTC and may sit one day off the
// bet's local date.
func matchScore(scores []GameScore, b store.TrackedBet) (GameScore, bool) {
	for _, s := range scores {
		if s.Matchup() == b.Matchup && s.Date == b.Date {
			return s, true
		}
	}
	for _, s := range scores {
		if s.Matchup() == b.Matchup {
			return s, true
		}
	}
	return GameScore{}, false
}
