// Package profile reads user profiles from the document store and applies
// the site-wide settings defaults.
package profile

import (
	"context"

	"edge-analyst/internal/store"
)

const (
	RoleFree  = "free"
	RolePro   = "pro"
	RoleAdmin = "admin"
)

// Defaults returns the settings every new account starts with.
func Defaults() store.Settings {
	return store.Settings{
		DefaultSport:  "nba",
		OddsFormat:    "american",
		BetSize:       10,
		UnitSize:      10,
		MinConfidence: 55,
		MinEV:         3,
		KellyFraction: "half",
		MaxBetPct:     5,
		RiskTolerance: "moderate",
	}
}

type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

// Get loads a profile, backfilling unset settings with defaults. An
// unknown uid yields a fresh free-role profile rather than an error so
// the assistant works for users who never saved settings.
func (s *Service) Get(ctx context.Context, uid string) (store.Profile, error) {
	p, err := s.store.GetProfile(ctx, uid)
	if err == store.ErrNotFound {
		return store.Profile{UID: uid, Role: RoleFree, Settings: Defaults()}, nil
	}
	if err != nil {
		return store.Profile{}, err
	}
	p.Settings = merge(Defaults(), p.Settings)
	if p.Role == "" {
		p.Role = RoleFree
	}
	return p, nil
}

func (s *Service) Put(ctx context.Context, p store.Profile) error {
	return s.store.PutProfile(ctx, p)
}

// IsAdmin is the single role-gating capability query.
func IsAdmin(p store.Profile) bool { return p.Role == RoleAdmin }

func merge(base, over store.Settings) store.Settings {
	out := base
	if over.Bankroll != 0 {
		out.Bankroll = over.Bankroll
	}
	if over.UnitSize != 0 {
		out.UnitSize = over.UnitSize
	}
	if over.BetSize != 0 {
		out.BetSize = over.BetSize
	}
	if over.KellyFraction != "" {
		out.KellyFraction = over.KellyFraction
	}
	if over.MaxBetPct != 0 {
		out.MaxBetPct = over.MaxBetPct
	}
	if over.RiskTolerance != "" {
		out.RiskTolerance = over.RiskTolerance
	}
	if over.MinConfidence != 0 {
		out.MinConfidence = over.MinConfidence
	}
	if over.MinEV != 0 {
		out.MinEV = over.MinEV
	}
	if over.MonthlyTarget != 0 {
		out.MonthlyTarget = over.MonthlyTarget
	}
	if over.DefaultSport != "" {
		out.DefaultSport = over.DefaultSport
	}
	if over.OddsFormat != "" {
		out.OddsFormat = over.OddsFormat
	}
	return out
}
