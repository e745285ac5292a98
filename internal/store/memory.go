package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and as a fallback when
// no database path is configured.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
	bets     map[string]TrackedBet
	messages []ChatMessage
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		bets:     make(map[string]TrackedBet),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetProfile(_ context.Context, uid string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) PutProfile(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UID] = p
	return nil
}

func (s *MemoryStore) AddBet(_ context.Context, b TrackedBet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets[b.ID] = b
	return nil
}

func (s *MemoryStore) DeleteBet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[id]; !ok {
		return ErrNotFound
	}
	delete(s.bets, id)
	return nil
}

func (s *MemoryStore) FindBet(_ context.Context, uid, matchup, pick string) (TrackedBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bets {
		if b.UserID == uid && b.Matchup == matchup && b.Pick == pick {
			return b, nil
		}
	}
	return TrackedBet{}, ErrNotFound
}

func (s *MemoryStore) ListBetsByDate(_ context.Context, uid, date string) ([]TrackedBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TrackedBet
	for _, b := range s.bets {
		if b.UserID == uid && b.Date == date {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListUngradedBets(_ context.Context, before string) ([]TrackedBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TrackedBet
	for _, b := range s.bets {
		if !b.Graded && b.Date < before {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MemoryStore) GradeBet(_ context.Context, id, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[id]
	if !ok {
		return ErrNotFound
	}
	b.Result = result
	b.Graded = true
	s.bets[id] = b
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, m ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

func (s *MemoryStore) ListMessagesByDate(_ context.Context, uid, date string) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ChatMessage
	for _, m := range s.messages {
		if m.UserID == uid && m.SessionDate == date {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *MemoryStore) ListRecentMessages(_ context.Context, uid string, limit int) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ChatMessage
	for _, m := range s.messages {
		if m.UserID == uid {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteMessagesByDate(_ context.Context, uid, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	for _, m := range s.messages {
		if !(m.UserID == uid && m.SessionDate == date) {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}
