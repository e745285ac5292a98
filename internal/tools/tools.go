// Package tools executes the model-invoked tracked-bet operations
// against the document store. Every outcome — success or failure — is a
// JSON result object the engine can hand back as a tool result; nothing
// escapes this boundary as an error.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edge-analyst/internal/store"
)

const (
	ToolAddBet     = "add_bet"
	ToolRemoveBet  = "remove_bet"
	ToolListBets   = "get_tracked_bets"
	defaultUnit    = 10
	trackingSource = "chat"
)

type Executor struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(s store.Store, log *zap.Logger) *Executor {
	return &Executor{store: s, log: log, now: time.Now}
}

// Execute runs one tool call and returns the JSON-encoded outcome.
func (e *Executor) Execute(ctx context.Context, uid, name string, input json.RawMessage, settings store.Settings) string {
	if uid == "" {
		return failure("You must be signed in to manage tracked bets.")
	}
	switch name {
	case ToolAddBet:
		return e.addBet(ctx, uid, input, settings)
	case ToolRemoveBet:
		return e.removeBet(ctx, uid, input)
	case ToolListBets:
		return e.listBets(ctx, uid, input)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", name))
	}
}

type addBetInput struct {
	Sport      string   `json:"sport"`
	Type       string   `json:"type"`
	Matchup    string   `json:"matchup"`
	Pick       string   `json:"pick"`
	Player     string   `json:"player"`
	StatType   string   `json:"statType"`
	Line       *float64 `json:"line"`
	Confidence *float64 `json:"confidence"`
	Odds       string   `json:"odds"`
	Date       string   `json:"date"`
}

func (e *Executor) addBet(ctx context.Context, uid string, input json.RawMessage, settings store.Settings) string {
	var in addBetInput
	if err := json.Unmarshal(input, &in); err != nil {
		return failure("invalid add_bet arguments: " + err.Error())
	}
	var missing []string
	for _, f := range []struct {
		name string
		ok   bool
	}{
		{"sport", in.Sport != ""},
		{"type", in.Type != ""},
		{"matchup", in.Matchup != ""},
		{"pick", in.Pick != ""},
		{"line", in.Line != nil},
		{"confidence", in.Confidence != nil},
	} {
		if !f.ok {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return failure("missing required fields: " + strings.Join(missing, ", "))
	}

	unit := settings.UnitSize
	if unit == 0 {
		unit = defaultUnit
	}
	date := in.Date
	if date == "" {
		date = e.now().Format("2006-01-02")
	}

	bet := store.TrackedBet{
		ID:         uuid.NewString(),
		UserID:     uid,
		Sport:      in.Sport,
		Type:       in.Type,
		Matchup:    in.Matchup,
		Pick:       in.Pick,
		Player:     in.Player,
		StatType:   in.StatType,
		Line:       *in.Line,
		Confidence: *in.Confidence,
		Odds:       in.Odds,
		Date:       date,
		Stake:      unit,
		Units:      1,
		Graded:     false,
		Source:     trackingSource,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.store.AddBet(ctx, bet); err != nil {
		e.log.Warn("add_bet store failure", zap.Error(err))
		return failure("could not save the bet, please try again")
	}
	return success(map[string]any{
		"betId":   bet.ID,
		"message": fmt.Sprintf("Tracked %s %s for $%g", bet.Matchup, bet.Pick, bet.Stake),
	})
}

type removeBetInput struct {
	Matchup string `json:"matchup"`
	Pick    string `json:"pick"`
}

func (e *Executor) removeBet(ctx context.Context, uid string, input json.RawMessage) string {
	var in removeBetInput
	if err := json.Unmarshal(input, &in); err != nil {
		return failure("invalid remove_bet arguments: " + err.Error())
	}
	if in.Matchup == "" || in.Pick == "" {
		return failure("matchup and pick are required")
	}
	bet, err := e.store.FindBet(ctx, uid, in.Matchup, in.Pick)
	if errors.Is(err, store.ErrNotFound) {
		return failure(fmt.Sprintf("no tracked bet found for %s %s", in.Matchup, in.Pick))
	}
	if err != nil {
		e.log.Warn("remove_bet lookup failure", zap.Error(err))
		return failure("could not look up the bet, please try again")
	}
	if err := e.store.DeleteBet(ctx, bet.ID); err != nil {
		e.log.Warn("remove_bet delete failure", zap.Error(err))
		return failure("could not remove the bet, please try again")
	}
	return success(map[string]any{
		"message": fmt.Sprintf("Removed %s %s from tracked bets", bet.Matchup, bet.Pick),
	})
}

type listBetsInput struct {
	Date string `json:"date"`
}

func (e *Executor) listBets(ctx context.Context, uid string, input json.RawMessage) string {
	var in listBetsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return failure("invalid get_tracked_bets arguments: " + err.Error())
		}
	}
	date := in.Date
	if date == "" {
		date = e.now().Format("2006-01-02")
	}
	bets, err := e.store.ListBetsByDate(ctx, uid, date)
	if err != nil {
		e.log.Warn("get_tracked_bets store failure", zap.Error(err))
		return failure("could not load tracked bets, please try again")
	}
	if bets == nil {
		bets = []store.TrackedBet{}
	}
	return success(map[string]any{
		"date":  date,
		"count": len(bets),
		"bets":  bets,
	})
}

func success(fields map[string]any) string {
	out := map[string]any{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	raw, _ := json.Marshal(out)
	return string(raw)
}

func failure(msg string) string {
	raw, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return string(raw)
}
