// Package api exposes the assistant's operations to the web widget.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"edge-analyst/internal/chat"
	"edge-analyst/internal/grading"
	"edge-analyst/internal/kelly"
	"edge-analyst/internal/profile"
	"edge-analyst/internal/ratelimit"
	"edge-analyst/internal/session"
	"edge-analyst/internal/store"
)

type Server struct {
	engine   *chat.Engine
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	profiles *profile.Service
	grader   *grading.Grader
	log      *zap.Logger
}

func NewServer(
	engine *chat.Engine,
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	profiles *profile.Service,
	grader *grading.Grader,
	log *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		sessions: sessions,
		limiter:  limiter,
		profiles: profiles,
		grader:   grader,
		log:      log,
	}
}

func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(CORS(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Post("/chat/open", s.handleOpen)
		r.Post("/chat/send", s.handleSend)
		r.Get("/chat/sessions", s.handleListSessions)
		r.Get("/chat/sessions/{date}", s.handleViewPast)
		r.Post("/chat/resume", s.handleResume)
		r.Delete("/chat/today", s.handleClear)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)
		r.Post("/kelly", s.handleKelly)
		r.Post("/admin/grade", s.handleGrade)
	})

	return r
}

type transcriptMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// transcript keeps only the renderable subsequence of the log; tool
// protocol entries never become bubbles.
func transcript(entries []session.Entry) []transcriptMessage {
	out := make([]transcriptMessage, 0, len(entries))
	for _, e := range entries {
		if e.Renderable() {
			out = append(out, transcriptMessage{Role: e.Role, Content: e.Text, Timestamp: e.Timestamp})
		}
	}
	return out
}

func (s *Server) rateState(r *http.Request) ratelimit.UIState {
	p, err := s.profiles.Get(r.Context(), userID(r))
	if err != nil {
		return ratelimit.UIState{}
	}
	return s.limiter.UIStateFor(p)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	entries, insight, err := s.engine.Open(r.Context(), userID(r))
	if err != nil {
		s.log.Warn("open failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": transcript(entries),
		"insight":  insight,
		"rate":     s.rateState(r),
	})
}

type sendRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	reply, err := s.engine.Send(r.Context(), userID(r), req.Message)
	if errors.Is(err, chat.ErrBusy) || errors.Is(err, chat.ErrViewingPast) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.log.Warn("send failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not process message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
		"rate":  s.rateState(r),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.sessions.ListSessions(r.Context(), userID(r))
	if err != nil {
		s.log.Warn("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

func (s *Server) handleViewPast(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	entries, err := s.sessions.ViewPast(r.Context(), userID(r), date)
	if err != nil {
		s.log.Warn("view past failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     date,
		"messages": transcript(entries),
		"readOnly": true,
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	entries := s.sessions.ResumeToday(userID(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": transcript(entries),
		"rate":     s.rateState(r),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Clear(r.Context(), userID(r)); err != nil {
		s.log.Warn("clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings")
		return
	}
	p, err := s.profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	p.Settings = settings
	if err := s.profiles.Put(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type kellyRequest struct {
	Confidence float64 `json:"confidence"`
	Odds       string  `json:"odds"`
}

func (s *Server) handleKelly(w http.ResponseWriter, r *http.Request) {
	var req kellyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	p, err := s.profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	sizing := kelly.Calculate(req.Confidence, req.Odds, p.Settings)
	writeJSON(w, http.StatusOK, map[string]any{
		"sizing": sizing,
		"tier":   kelly.Tier(req.Confidence, sizing.Edge),
	})
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), userID(r))
	if err != nil || !profile.IsAdmin(p) {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	n, err := s.grader.Run(r.Context())
	if err != nil {
		s.log.Warn("grading run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "grading failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graded": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
