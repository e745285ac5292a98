// Package ratelimit gates chat sends on a per-user per-day message cap.
package ratelimit

import (
	"fmt"
	"strconv"
	"time"

	"edge-analyst/internal/localstate"
	"edge-analyst/internal/profile"
	"edge-analyst/internal/store"
)

const counterPrefix = "chat_count_"

// Affordance is the input state the widget should present.
type Affordance int

const (
	Normal Affordance = iota
	Warning
	Exhausted
)

// UIState tells the front end how to degrade the input as the quota
// runs out.
type UIState struct {
	Affordance  Affordance `json:"affordance"`
	Remaining   int        `json:"remaining"`
	Placeholder string     `json:"placeholder,omitempty"`
	Disabled    bool       `json:"disabled"`
}

type Limiter struct {
	state localstate.Store
	cap   int
	now   func() time.Time
}

func New(state localstate.Store, dailyCap int) *Limiter {
	return &Limiter{state: state, cap: dailyCap, now: time.Now}
}

// The counter key embeds the calendar date, so the quota rolls over at
// midnight without any cleanup.
func (l *Limiter) key(uid string) string {
	return counterPrefix + uid + "_" + l.now().Format("2006-01-02")
}

func (l *Limiter) count(uid string) int {
	n, _ := strconv.Atoi(l.state.Get(l.key(uid)))
	return n
}

// Allow reports whether the user may send another message. Admins are
// never limited.
func (l *Limiter) Allow(p store.Profile) bool {
	if profile.IsAdmin(p) {
		return true
	}
	return l.count(p.UID) < l.cap
}

// Increment records one consumed message. No-op for admins. The new
// count is durable before return, so the next Allow sees it.
func (l *Limiter) Increment(p store.Profile) error {
	if profile.IsAdmin(p) {
		return nil
	}
	return l.state.Set(l.key(p.UID), strconv.Itoa(l.count(p.UID)+1))
}

// Cap returns the configured daily cap.
func (l *Limiter) Cap() int { return l.cap }

// UIStateFor computes the input affordance for the user.
func (l *Limiter) UIStateFor(p store.Profile) UIState {
	if profile.IsAdmin(p) {
		return UIState{Affordance: Normal, Remaining: l.cap}
	}
	remaining := l.cap - l.count(p.UID)
	switch {
	case remaining <= 0:
		return UIState{
			Affordance:  Exhausted,
			Remaining:   0,
			Placeholder: "Daily limit reached. Resets tomorrow.",
			Disabled:    true,
		}
	case remaining <= 5:
		return UIState{
			Affordance:  Warning,
			Remaining:   remaining,
			Placeholder: fmt.Sprintf("%d messages remaining today...", remaining),
		}
	default:
		return UIState{Affordance: Normal, Remaining: remaining}
	}
}
