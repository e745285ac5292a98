package feeds

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"edge-analyst/internal/localstate"
)

const (
	insightMarkerPrefix = "insight_date_"
	legacyBetsKey       = "efe_tracked_bets"
)

// AutoInsight derives the once-per-day opening highlight for a user:
// yesterday's combined record, today's pick volume and the best all-time
// ROI model. Returns "" when already shown today or nothing qualifies.
// The shown marker is set on first call of the day even when no insight
// is produced, so a data-less morning does not retrigger later.
func (a *Aggregator) AutoInsight(snap *Snapshot, uid string, state localstate.Store) string {
	today := a.now().Format("2006-01-02")
	key := insightMarkerPrefix + uid
	if state.Get(key) == today {
		return ""
	}
	if err := state.Set(key, today); err != nil {
		a.log.Warn("insight marker write failed", zap.Error(err))
	}

	if snap == nil {
		return ""
	}
	var lines []string

	yesterday := a.now().AddDate(0, 0, -1).Format("2006-01-02")
	totalW, totalL := 0, 0
	for _, f := range []*ResultsFeed{snap.Results, snap.NHLResults, snap.NCAABResults} {
		yd := f.Day(yesterday)
		if yd == nil {
			continue
		}
		for _, c := range yd.Categories() {
			if c.Cat != nil {
				totalW += c.Cat.Wins
				totalL += c.Cat.Losses
			}
		}
	}
	if totalW+totalL > 0 {
		pct := float64(totalW) / float64(totalW+totalL) * 100
		lines = append(lines, fmt.Sprintf("Yesterday: **%d-%d** (%.1f%%) across all sports", totalW, totalL, pct))
	}

	pickCount := 0
	if snap.Projections != nil {
		pickCount += len(snap.Projections.Projections)
	}
	for _, f := range []*GamesFeed{snap.GameProjections, snap.NHLGameProj, snap.NCAABProjections} {
		if f != nil {
			pickCount += len(f.Games)
		}
	}
	if pickCount > 0 {
		lines = append(lines, fmt.Sprintf("Today: **%d picks** loaded across all models", pickCount))
	}

	bestModel, bestROI := "", -999.0
	for _, sr := range []struct {
		feed  *ResultsFeed
		label string
	}{
		{snap.Results, "NBA"},
		{snap.NHLResults, "NHL"},
		{snap.NCAABResults, "NCAAB"},
	} {
		if sr.feed == nil {
			continue
		}
		for c, o := range sr.feed.AllTime {
			if o.ROI > bestROI {
				bestROI = o.ROI
				bestModel = sr.label + " " + c
			}
		}
	}
	if bestModel != "" && bestROI > 0 {
		lines = append(lines, fmt.Sprintf("Top model: **%s** at %s%% ROI", bestModel, num(bestROI)))
	}

	return strings.Join(lines, "\n")
}

// ResetInsightMarker clears the shown-today marker so a fresh insight
// can fire after the user clears the current session.
func ResetInsightMarker(uid string, state localstate.Store) {
	_ = state.Delete(insightMarkerPrefix + uid)
}

// LegacyBetSummary reads the legacy flat tracked-bets list kept in local
// state and reduces it to counts. The list is read-only fallback data;
// a missing or unparseable value yields nil.
func LegacyBetSummary(state localstate.Store) *BetSummary {
	raw := state.Get(legacyBetsKey)
	if raw == "" {
		return nil
	}
	var bets []struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(raw), &bets); err != nil || len(bets) == 0 {
		return nil
	}
	s := &BetSummary{Total: len(bets)}
	for _, b := range bets {
		switch b.Result {
		case "win":
			s.Won++
		case "loss":
			s.Lost++
		default:
			s.Pending++
		}
	}
	return s
}
