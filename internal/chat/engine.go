// Package chat drives the conversation turn protocol: rate gate, model
// call, bounded tool loop, reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"edge-analyst/internal/feeds"
	"edge-analyst/internal/localstate"
	"edge-analyst/internal/profile"
	"edge-analyst/internal/ratelimit"
	"edge-analyst/internal/relay"
	"edge-analyst/internal/session"
	"edge-analyst/internal/store"
	"edge-analyst/internal/tools"
)

// Apology is the only failure text users ever see from a broken turn.
const Apology = "Sorry, I couldn't process that request. Please try again in a moment."

var (
	// ErrBusy rejects a send while a previous turn is still in flight
	// for the same user.
	ErrBusy = errors.New("turn already in progress")
	// ErrViewingPast rejects sends while a read-only past session is
	// open.
	ErrViewingPast = errors.New("viewing a past session")
)

// Options are the engine's tuning knobs.
type Options struct {
	Model         string
	MaxTokens     int
	HistoryWindow int
	MaxToolRounds int
}

type Engine struct {
	relay    relay.Client
	agg      *feeds.Aggregator
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	executor *tools.Executor
	profiles *profile.Service
	state    localstate.Store
	log      *zap.Logger
	opts     Options

	mu   sync.Mutex
	busy map[string]bool
}

func New(
	rc relay.Client,
	agg *feeds.Aggregator,
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	executor *tools.Executor,
	profiles *profile.Service,
	state localstate.Store,
	log *zap.Logger,
	opts Options,
) *Engine {
	return &Engine{
		relay:    rc,
		agg:      agg,
		sessions: sessions,
		limiter:  limiter,
		executor: executor,
		profiles: profiles,
		state:    state,
		log:      log,
		opts:     opts,
		busy:     make(map[string]bool),
	}
}

// Open restores today's session and computes the once-per-day insight.
// The insight is render-only: it is shown as a bubble but never enters
// the message log or the model window.
func (e *Engine) Open(ctx context.Context, uid string) ([]session.Entry, string, error) {
	entries, err := e.sessions.LoadToday(ctx, uid)
	if err != nil {
		return nil, "", err
	}
	snap := e.agg.FetchAll(ctx)
	insight := e.agg.AutoInsight(snap, uid, e.state)
	return entries, insight, nil
}

// Send runs one user turn. The returned string is always something to
// show the user; hard errors only occur for guarded entry conditions.
func (e *Engine) Send(ctx context.Context, uid, text string) (string, error) {
	e.mu.Lock()
	if e.busy[uid] {
		e.mu.Unlock()
		return "", ErrBusy
	}
	if e.sessions.Viewing(uid) {
		e.mu.Unlock()
		return "", ErrViewingPast
	}
	e.busy[uid] = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.busy, uid)
		e.mu.Unlock()
	}()

	prof, err := e.profiles.Get(ctx, uid)
	if err != nil {
		e.log.Warn("profile load failed, using defaults", zap.String("uid", uid), zap.Error(err))
		prof = store.Profile{UID: uid, Role: profile.RoleFree, Settings: profile.Defaults()}
	}

	e.sessions.Append(uid, session.Entry{Role: relay.RoleUser, Text: text})

	if !e.limiter.Allow(prof) {
		refusal := fmt.Sprintf(
			"You've reached your daily message limit (%d). Your limit resets tomorrow.",
			e.limiter.Cap())
		e.sessions.Append(uid, session.Entry{Role: relay.RoleAssistant, Text: refusal})
		return refusal, nil
	}

	snap := e.agg.FetchAll(ctx)
	betSummary := feeds.LegacyBetSummary(e.state)

	partial := ""
	for round := 0; round <= e.opts.MaxToolRounds; round++ {
		// The system prompt is rebuilt every round so tool results and
		// profile changes are reflected immediately.
		req := relay.Request{
			Model:     e.opts.Model,
			MaxTokens: e.opts.MaxTokens,
			System:    e.agg.BuildSystemPrompt(snap, prof, betSummary),
			Messages:  e.sessions.Window(uid, e.opts.HistoryWindow),
			Tools:     relay.BetTools(),
		}

		resp, err := e.relay.Complete(ctx, req)
		if err != nil {
			e.log.Warn("relay call failed", zap.String("uid", uid), zap.Int("round", round), zap.Error(err))
			return e.apologize(uid), nil
		}

		tu := resp.FirstToolUse()
		if tu == nil {
			reply := resp.Text()
			if reply == "" {
				e.log.Warn("relay reply had no text", zap.String("uid", uid))
				return e.apologize(uid), nil
			}
			e.sessions.Append(uid, session.Entry{Role: relay.RoleAssistant, Text: reply})
			if err := e.limiter.Increment(prof); err != nil {
				e.log.Warn("rate counter increment failed", zap.String("uid", uid), zap.Error(err))
			}
			return reply, nil
		}

		if round == e.opts.MaxToolRounds {
			// Bound hit: stop without executing another tool.
			break
		}

		if t := resp.Text(); t != "" {
			partial = t
		}

		e.sessions.Append(uid, session.Entry{Role: relay.RoleAssistant, Blocks: resp.Content})

		result := e.executor.Execute(ctx, uid, tu.Name, tu.Input, prof.Settings)
		e.log.Debug("tool executed",
			zap.String("uid", uid), zap.String("tool", tu.Name), zap.Int("round", round))

		e.sessions.Append(uid, session.Entry{
			Role: relay.RoleUser,
			Blocks: []relay.Block{{
				Type:      relay.BlockToolResult,
				ToolUseID: tu.ID,
				Content:   result,
			}},
		})
	}

	// Tool loop exhausted. Surface whatever partial text the model
	// produced along the way, otherwise the generic failure message.
	e.log.Warn("tool loop exhausted", zap.String("uid", uid))
	if partial != "" {
		e.sessions.Append(uid, session.Entry{Role: relay.RoleAssistant, Text: partial})
		return partial, nil
	}
	return e.apologize(uid), nil
}

func (e *Engine) apologize(uid string) string {
	e.sessions.Append(uid, session.Entry{Role: relay.RoleAssistant, Text: Apology})
	return Apology
}

// Clear wipes today's session and re-arms the auto-insight.
func (e *Engine) Clear(ctx context.Context, uid string) error {
	if err := e.sessions.Clear(ctx, uid); err != nil {
		return err
	}
	feeds.ResetInsightMarker(uid, e.state)
	return nil
}
