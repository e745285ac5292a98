// Package store is the document store boundary: user profiles, tracked
// bets and chat message rows, scoped per user.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Settings mirrors the per-user settings document. Zero values mean the
// field was never set and must be treated as absent.
type Settings struct {
	Bankroll      float64 `json:"bankroll,omitempty"`
	UnitSize      float64 `json:"unitSize,omitempty"`
	BetSize       float64 `json:"betSize,omitempty"`
	KellyFraction string  `json:"kellyFraction,omitempty"`
	MaxBetPct     float64 `json:"maxBetPct,omitempty"`
	RiskTolerance string  `json:"riskTolerance,omitempty"`
	MinConfidence float64 `json:"minConfidence,omitempty"`
	MinEV         float64 `json:"minEV,omitempty"`
	MonthlyTarget float64 `json:"monthlyTarget,omitempty"`
	DefaultSport  string  `json:"defaultSport,omitempty"`
	OddsFormat    string  `json:"oddsFormat,omitempty"`
}

type Profile struct {
	UID         string   `json:"uid"`
	DisplayName string   `json:"displayName,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Settings    Settings `json:"settings"`
}

// TrackedBet is a user's tracked pick. Result is empty until graded.
type TrackedBet struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Sport      string    `json:"sport"`
	Type       string    `json:"type"`
	Matchup    string    `json:"matchup"`
	Pick       string    `json:"pick"`
	Player     string    `json:"player,omitempty"`
	StatType   string    `json:"statType,omitempty"`
	Line       float64   `json:"line"`
	Confidence float64   `json:"confidence"`
	Odds       string    `json:"odds,omitempty"`
	Date       string    `json:"date"`
	Stake      float64   `json:"stake"`
	Units      float64   `json:"units"`
	Result     string    `json:"result,omitempty"`
	Graded     bool      `json:"graded"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChatMessage is one durable row per conversation message. Blocks holds
// the JSON-encoded structured content for tool protocol messages and is
// empty for plain text.
type ChatMessage struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	Blocks      string `json:"blocks,omitempty"`
	SessionDate string `json:"sessionDate"`
	Timestamp   int64  `json:"timestamp"`
}

// Renderable reports whether the row is plain text shown in the transcript.
func (m ChatMessage) Renderable() bool { return m.Blocks == "" }

// Store abstracts the external document store. Every operation is
// independently failable; callers decide how to degrade.
type Store interface {
	GetProfile(ctx context.Context, uid string) (Profile, error)
	PutProfile(ctx context.Context, p Profile) error

	AddBet(ctx context.Context, b TrackedBet) error
	DeleteBet(ctx context.Context, id string) error
	FindBet(ctx context.Context, uid, matchup, pick string) (TrackedBet, error)
	ListBetsByDate(ctx context.Context, uid, date string) ([]TrackedBet, error)
	ListUngradedBets(ctx context.Context, before string) ([]TrackedBet, error)
	GradeBet(ctx context.Context, id, result string) error

	AppendMessage(ctx context.Context, m ChatMessage) error
	ListMessagesByDate(ctx context.Context, uid, date string) ([]ChatMessage, error)
	ListRecentMessages(ctx context.Context, uid string, limit int) ([]ChatMessage, error)
	DeleteMessagesByDate(ctx context.Context, uid, date string) error

	Close() error
}
