package feeds

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"edge-analyst/internal/store"
)

// BetSummary is the read-only fallback summary derived from the legacy
// flat tracked-bets list.
type BetSummary struct {
	Total   int
	Pending int
	Won     int
	Lost    int
}

// BuildSystemPrompt renders the grounding context for one completion
// request. Sections whose source feed is absent are omitted entirely;
// no figures are ever fabricated.
func (a *Aggregator) BuildSystemPrompt(snap *Snapshot, p store.Profile, bets *BetSummary) string {
	today := a.now().Format("2006-01-02")
	var parts []string

	parts = append(parts,
		"You are EF Analyst, the AI assistant for Edge Factor Elite — a sports betting analytics platform. "+
			"You help users understand their betting performance, analyze today's model picks, and discuss strategy. "+
			"Be concise, data-driven, and confident. Use the data provided below as your knowledge base. "+
			"Do not make up statistics — only reference numbers from the data provided. "+
			"If you don't have data for something, say so. "+
			"You can manage the user's tracked bets with the add_bet, remove_bet and get_tracked_bets tools; "+
			"use them when the user asks to track, remove or review a pick. Today is "+today+".")

	if line := settingsLine(p.Settings); line != "" {
		parts = append(parts, "\n## User Settings\n"+line)
	}

	if snap == nil {
		return strings.Join(parts, "\n")
	}

	if perf := performanceSection(snap); perf != "" {
		parts = append(parts, perf)
	}

	yesterday := a.now().AddDate(0, 0, -1).Format("2006-01-02")
	if yd := snap.Results.Day(yesterday); yd != nil {
		var ydParts []string
		for _, c := range yd.Categories() {
			if c.Cat != nil && c.Cat.Record != "" {
				ydParts = append(ydParts, c.Name+": "+c.Cat.Record)
			}
		}
		if len(ydParts) > 0 {
			parts = append(parts, "\n## Yesterday's Record ("+yesterday+")\n"+strings.Join(ydParts, " | "))
		}
	}

	if props := propsSection(snap.Projections); props != "" {
		parts = append(parts, props)
	}

	if s := nbaGamesSection(snap.GameProjections, a.thresholds.NBA); s != "" {
		parts = append(parts, s)
	}
	if s := nhlGamesSection(snap.NHLGameProj, a.thresholds.NHL); s != "" {
		parts = append(parts, s)
	}
	if s := ncaabGamesSection(snap.NCAABProjections, a.thresholds.NCAAB); s != "" {
		parts = append(parts, s)
	}

	if bets != nil && bets.Total > 0 {
		parts = append(parts, fmt.Sprintf(
			"\n## User's Tracked Bets\nTotal: %d | Pending: %d | Won: %d | Lost: %d",
			bets.Total, bets.Pending, bets.Won, bets.Lost))
	}

	return strings.Join(parts, "\n")
}

func settingsLine(s store.Settings) string {
	var ps []string
	if s.Bankroll != 0 {
		ps = append(ps, "Bankroll: $"+num(s.Bankroll))
	}
	if s.UnitSize != 0 {
		ps = append(ps, "Unit size: $"+num(s.UnitSize))
	}
	if s.RiskTolerance != "" {
		ps = append(ps, "Risk tolerance: "+s.RiskTolerance)
	}
	if s.KellyFraction != "" {
		ps = append(ps, "Kelly fraction: "+s.KellyFraction)
	}
	if s.MonthlyTarget != 0 {
		ps = append(ps, "Monthly target: $"+num(s.MonthlyTarget))
	}
	if s.DefaultSport != "" {
		ps = append(ps, "Default sport: "+strings.ToUpper(s.DefaultSport))
	}
	if s.MinConfidence != 0 {
		ps = append(ps, "Min confidence: "+num(s.MinConfidence)+"%")
	}
	return strings.Join(ps, " | ")
}

func performanceSection(snap *Snapshot) string {
	sports := []struct {
		feed  *ResultsFeed
		label string
	}{
		{snap.Results, "NBA"},
		{snap.NHLResults, "NHL"},
		{snap.NCAABResults, "NCAAB"},
	}
	var perfLines []string
	for _, sr := range sports {
		if sr.feed == nil || len(sr.feed.AllTime) == 0 {
			continue
		}
		cats := make([]string, 0, len(sr.feed.AllTime))
		for c := range sr.feed.AllTime {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		lines := make([]string, 0, len(cats))
		for _, c := range cats {
			o := sr.feed.AllTime[c]
			lines = append(lines, fmt.Sprintf("%s: %d-%d (%s%%) ROI %s%%", c, o.Wins, o.Losses, num(o.Pct), num(o.ROI)))
		}
		perfLines = append(perfLines, sr.label+" — "+strings.Join(lines, ", "))
	}
	if len(perfLines) == 0 {
		return ""
	}
	return "\n## Platform Performance (All-Time)\n" + strings.Join(perfLines, "\n")
}

func propsSection(proj *ProjectionsFeed) string {
	if proj == nil || len(proj.Projections) == 0 {
		return ""
	}
	sorted := make([]Projection, len(proj.Projections))
	copy(sorted, proj.Projections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EV > sorted[j].EV })
	top := sorted
	if len(top) > 8 {
		top = top[:8]
	}
	lines := make([]string, 0, len(top))
	for _, p := range top {
		lines = append(lines, fmt.Sprintf("%s %s %s %s (proj: %s, conf: %s%%, EV: %s)",
			p.Player, p.Prop, p.Direction, num(p.Line), num(p.Projection), num(p.Confidence), num(p.EV)))
	}
	return fmt.Sprintf("\n## Today's Props (%d total)\nTop by EV:\n%s",
		len(proj.Projections), strings.Join(lines, "\n"))
}

func nbaGamesSection(gp *GamesFeed, th float64) string {
	if gp == nil || len(gp.Games) == 0 {
		return ""
	}
	var notable []GamePick
	for _, g := range gp.Games {
		if g.SpreadConf > th || g.TotalConf > th || g.MLConf > th {
			notable = append(notable, g)
		}
	}
	if len(notable) == 0 {
		return ""
	}
	if len(notable) > 6 {
		notable = notable[:6]
	}
	lines := make([]string, 0, len(notable))
	for _, g := range notable {
		var p []string
		// 55 is the display floor; th only gates which games qualify.
		if g.SpreadConf > 55 {
			p = append(p, "Spread: "+g.SpreadPick+" ("+num(g.SpreadConf)+"%)")
		}
		if g.TotalConf > 55 {
			p = append(p, "Total: "+g.TotalPick+" ("+num(g.TotalConf)+"%)")
		}
		if g.MLPick != "" && g.MLConf > 55 {
			p = append(p, "ML: "+g.MLPick+" ("+num(g.MLConf)+"%)")
		}
		lines = append(lines, g.AwayTeam+" @ "+g.HomeTeam+" — "+strings.Join(p, ", "))
	}
	return "\n## Notable NBA Games Today\n" + strings.Join(lines, "\n")
}

func nhlGamesSection(gp *GamesFeed, th float64) string {
	if gp == nil || len(gp.Games) == 0 {
		return ""
	}
	var notable []GamePick
	for _, g := range gp.Games {
		if g.SpreadConf > th || g.TotalConf > th || g.MLConf > th {
			notable = append(notable, g)
		}
	}
	if len(notable) == 0 {
		return ""
	}
	if len(notable) > 5 {
		notable = notable[:5]
	}
	lines := make([]string, 0, len(notable))
	for _, g := range notable {
		var p []string
		if g.SpreadPick != "" {
			p = append(p, "Puck: "+g.SpreadPick+" ("+num(g.SpreadConf)+"%)")
		}
		if g.TotalPick != "" {
			p = append(p, "Total: "+g.TotalPick+" ("+num(g.TotalConf)+"%)")
		}
		if g.MLPick != "" {
			p = append(p, "ML: "+g.MLPick+" ("+num(g.MLConf)+"%)")
		}
		lines = append(lines, g.AwayTeam+" @ "+g.HomeTeam+" — "+strings.Join(p, ", "))
	}
	return "\n## Notable NHL Games Today\n" + strings.Join(lines, "\n")
}

func ncaabGamesSection(gp *GamesFeed, th float64) string {
	if gp == nil || len(gp.Games) == 0 {
		return ""
	}
	var notable []GamePick
	for _, g := range gp.Games {
		if g.SpreadConf > th || g.TotalConf > th {
			notable = append(notable, g)
		}
	}
	if len(notable) == 0 {
		return ""
	}
	if len(notable) > 5 {
		notable = notable[:5]
	}
	lines := make([]string, 0, len(notable))
	for _, g := range notable {
		var p []string
		if g.SpreadPick != "" {
			p = append(p, "Spread: "+g.SpreadPick+" ("+num(g.SpreadConf)+"%)")
		}
		if g.TotalPick != "" {
			p = append(p, "Total: "+g.TotalPick+" ("+num(g.TotalConf)+"%)")
		}
		lines = append(lines, g.AwayTeam+" @ "+g.HomeTeam+" — "+strings.Join(p, ", "))
	}
	return "\n## Notable NCAAB Games Today\n" + strings.Join(lines, "\n")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
