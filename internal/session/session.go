// Package session owns the per-user conversation log: the in-memory
// message list driving the model window and its durable mirror in the
// document store, partitioned into calendar-day sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edge-analyst/internal/relay"
	"edge-analyst/internal/store"
)

// listScanLimit bounds how many recent rows ListSessions groups.
const listScanLimit = 200

// Entry is one message of the in-memory log. Blocks is set for tool
// protocol messages, which never appear in the rendered transcript.
type Entry struct {
	Role      string        `json:"role"`
	Text      string        `json:"text,omitempty"`
	Blocks    []relay.Block `json:"blocks,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// Renderable reports whether the entry is a transcript bubble.
func (e Entry) Renderable() bool { return len(e.Blocks) == 0 }

// Info summarizes one past session for the history list.
type Info struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type userSession struct {
	loaded      bool
	viewingPast string
	lastTS      int64
	entries     []Entry
}

// Manager keeps one session log per user.
type Manager struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time

	mu    sync.Mutex
	users map[string]*userSession
}

func NewManager(s store.Store, log *zap.Logger) *Manager {
	return &Manager{
		store: s,
		log:   log,
		now:   time.Now,
		users: make(map[string]*userSession),
	}
}

func (m *Manager) user(uid string) *userSession {
	us, ok := m.users[uid]
	if !ok {
		us = &userSession{}
		m.users[uid] = us
	}
	return us
}

func (m *Manager) today() string { return m.now().Format("2006-01-02") }

// Append adds the entry to the in-memory log synchronously and persists
// it in the background. Persistence failures are logged and dropped;
// the live conversation must never block on the store.
func (m *Manager) Append(uid string, e Entry) Entry {
	m.mu.Lock()
	us := m.user(uid)
	ts := m.now().UnixMilli()
	if ts <= us.lastTS {
		ts = us.lastTS + 1
	}
	us.lastTS = ts
	e.Timestamp = ts
	us.entries = append(us.entries, e)
	m.mu.Unlock()

	row, err := toRow(uid, m.today(), e)
	if err != nil {
		m.log.Warn("encode message row", zap.Error(err))
		return e
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.store.AppendMessage(ctx, row); err != nil {
			m.log.Warn("persist message", zap.String("uid", uid), zap.Error(err))
		}
	}()
	return e
}

// LoadToday restores today's session from the store on first use.
// Subsequent calls are no-ops. Replay order comes from the stored
// timestamps, not write-arrival order.
func (m *Manager) LoadToday(ctx context.Context, uid string) ([]Entry, error) {
	m.mu.Lock()
	us := m.user(uid)
	if us.loaded {
		out := copyEntries(us.entries)
		m.mu.Unlock()
		return out, nil
	}
	m.mu.Unlock()

	rows, err := m.store.ListMessagesByDate(ctx, uid, m.today())
	if err != nil {
		return nil, fmt.Errorf("load today: %w", err)
	}
	entries, lastTS := fromRows(rows)

	m.mu.Lock()
	defer m.mu.Unlock()
	us = m.user(uid)
	if !us.loaded {
		us.loaded = true
		us.entries = entries
		if lastTS > us.lastTS {
			us.lastTS = lastTS
		}
	}
	return copyEntries(us.entries), nil
}

// History returns a copy of the live in-memory log.
func (m *Manager) History(uid string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyEntries(m.user(uid).entries)
}

// Window returns the most recent n messages shaped for the model
// request, silently trimming older turns.
func (m *Manager) Window(uid string, n int) []relay.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.user(uid).entries
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]relay.Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, relay.Message{Role: e.Role, Text: e.Text, Blocks: e.Blocks})
	}
	return out
}

// ListSessions groups the user's recent rows by date, newest first,
// counting only renderable messages per day.
func (m *Manager) ListSessions(ctx context.Context, uid string) ([]Info, error) {
	rows, err := m.store.ListRecentMessages(ctx, uid, listScanLimit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Renderable() {
			counts[r.SessionDate]++
		} else if _, ok := counts[r.SessionDate]; !ok {
			counts[r.SessionDate] = 0
		}
	}
	out := make([]Info, 0, len(counts))
	for date, n := range counts {
		out = append(out, Info{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// ViewPast loads a past day's messages read-only and marks the session
// as viewing, which blocks sends until ResumeToday.
func (m *Manager) ViewPast(ctx context.Context, uid, date string) ([]Entry, error) {
	rows, err := m.store.ListMessagesByDate(ctx, uid, date)
	if err != nil {
		return nil, fmt.Errorf("view past: %w", err)
	}
	entries, _ := fromRows(rows)

	m.mu.Lock()
	m.user(uid).viewingPast = date
	m.mu.Unlock()
	return entries, nil
}

// ResumeToday restores the live log view and re-enables sending.
func (m *Manager) ResumeToday(uid string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	us := m.user(uid)
	us.viewingPast = ""
	return copyEntries(us.entries)
}

// Viewing reports whether the user is looking at a read-only past day.
func (m *Manager) Viewing(uid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user(uid).viewingPast != ""
}

// Clear deletes today's rows and resets the in-memory log.
func (m *Manager) Clear(ctx context.Context, uid string) error {
	if err := m.store.DeleteMessagesByDate(ctx, uid, m.today()); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	us := m.user(uid)
	us.entries = nil
	us.loaded = true
	return nil
}

func toRow(uid, date string, e Entry) (store.ChatMessage, error) {
	row := store.ChatMessage{
		ID:          uuid.NewString(),
		UserID:      uid,
		Role:        e.Role,
		Content:     e.Text,
		SessionDate: date,
		Timestamp:   e.Timestamp,
	}
	if len(e.Blocks) > 0 {
		raw, err := json.Marshal(e.Blocks)
		if err != nil {
			return store.ChatMessage{}, err
		}
		row.Blocks = string(raw)
		row.Content = ""
	}
	return row, nil
}

func fromRows(rows []store.ChatMessage) ([]Entry, int64) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
	entries := make([]Entry, 0, len(rows))
	var lastTS int64
	for _, r := range rows {
		e := Entry{Role: r.Role, Text: r.Content, Timestamp: r.Timestamp}
		if r.Blocks != "" {
			if err := json.Unmarshal([]byte(r.Blocks), &e.Blocks); err != nil {
				// A row we cannot decode is dropped rather than poisoning
				// the replayed protocol state.
				continue
			}
			e.Text = ""
		}
		entries = append(entries, e)
		if r.Timestamp > lastTS {
			lastTS = r.Timestamp
		}
	}
	return entries, lastTS
}

func copyEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	copy(out, in)
	return out
}
