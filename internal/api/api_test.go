package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"edge-analyst/internal/chat"
	"edge-analyst/internal/feeds"
	"edge-analyst/internal/grading"
	"edge-analyst/internal/localstate"
	"edge-analyst/internal/profile"
	"edge-analyst/internal/ratelimit"
	"edge-analyst/internal/relay"
	"edge-analyst/internal/session"
	"edge-analyst/internal/store"
	"edge-analyst/internal/tools"
)

type stubRelay struct {
	reply string
}

func (s *stubRelay) Complete(context.Context, relay.Request) (relay.Response, error) {
	return relay.Response{Content: []relay.Block{{Type: relay.BlockText, Text: s.reply}}}, nil
}

type stubScores struct{}

func (stubScores) Scores(context.Context, string) ([]grading.GameScore, error) {
	return nil, nil
}

type testServer struct {
	handler  http.Handler
	store    *store.MemoryStore
	profiles *profile.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	feedSrv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(feedSrv.Close)

	log := zap.NewNop()
	st := store.NewMemory()
	state := localstate.NewMem()
	profiles := profile.New(st)
	limiter := ratelimit.New(state, 20)
	sessions := session.NewManager(st, log)
	executor := tools.New(st, log)
	agg := feeds.New(feedSrv.URL+"/", 2*time.Second, feeds.DefaultThresholds(), log)
	engine := chat.New(&stubRelay{reply: "hello there"}, agg, sessions, limiter,
		executor, profiles, state, log, chat.Options{
			Model: "test-model", MaxTokens: 1024, HistoryWindow: 20, MaxToolRounds: 5,
		})
	grader := grading.New(st, stubScores{}, log)

	srv := NewServer(engine, sessions, limiter, profiles, grader, log)
	return &testServer{
		handler:  srv.Routes([]string{"https://edgefactor.example"}),
		store:    st,
		profiles: profiles,
	}
}

func (ts *testServer) do(t *testing.T, method, path, uid, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if uid != "" {
		req.Header.Set("X-User-ID", uid)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireUser(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/send", nil)
	req.Header.Set("Origin", "https://edgefactor.example")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://edgefactor.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-User-ID") {
		t.Fatalf("allow-headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestCORSUnknownOriginGetsNoHeaders(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/send", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin leaked to unknown origin: %q", got)
	}
}

func TestGetProfileReturnsDefaults(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/profile", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var p store.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UID != "u1" || p.Role != profile.RoleFree {
		t.Fatalf("profile: %+v", p)
	}
	if p.Settings.DefaultSport != "nba" || p.Settings.UnitSize != 10 {
		t.Fatalf("defaults missing: %+v", p.Settings)
	}
}

func TestPutProfileRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	body := `{"bankroll": 2000, "kellyFraction": "quarter"}`
	rec := ts.do(t, http.MethodPut, "/api/profile", "u1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/profile", "u1", "")
	var p store.Profile
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Settings.Bankroll != 2000 || p.Settings.KellyFraction != "quarter" {
		t.Fatalf("saved settings: %+v", p.Settings)
	}
}

func TestSendEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/chat/send", "u1", `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Reply string            `json:"reply"`
		Rate  ratelimit.UIState `json:"rate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Reply != "hello there" {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Rate.Remaining != 19 {
		t.Fatalf("remaining = %d, want 19", out.Rate.Remaining)
	}
}

func TestSendEndpointValidation(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/chat/send", "u1", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/chat/send", "u1", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("broken body status = %d", rec.Code)
	}
}

func TestSendWhileViewingPastConflicts(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/chat/sessions/2020-01-01", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("view past status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/chat/send", "u1", `{"message":"hi"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	// Resume unblocks.
	rec = ts.do(t, http.MethodPost, "/api/chat/resume", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/chat/send", "u1", `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("send after resume status = %d", rec.Code)
	}
}

func TestOpenTranscriptOmitsToolEntries(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	today := time.Now().Format("2006-01-02")
	rows := []store.ChatMessage{
		{ID: "1", UserID: "u1", Role: "user", Content: "track it", SessionDate: today, Timestamp: 100},
		{ID: "2", UserID: "u1", Role: "assistant", Blocks: `[{"type":"tool_use","id":"tu1"}]`, SessionDate: today, Timestamp: 200},
		{ID: "3", UserID: "u1", Role: "user", Blocks: `[{"type":"tool_result","tool_use_id":"tu1"}]`, SessionDate: today, Timestamp: 300},
		{ID: "4", UserID: "u1", Role: "assistant", Content: "done", SessionDate: today, Timestamp: 400},
	}
	for _, r := range rows {
		if err := ts.store.AppendMessage(ctx, r); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	rec := ts.do(t, http.MethodPost, "/api/chat/open", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Messages []transcriptMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("transcript = %d messages: %+v", len(out.Messages), out.Messages)
	}
	if out.Messages[0].Content != "track it" || out.Messages[1].Content != "done" {
		t.Fatalf("transcript: %+v", out.Messages)
	}
}

func TestKellyEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.profiles.Put(context.Background(), store.Profile{
		UID: "u1", Role: profile.RoleFree,
		Settings: store.Settings{Bankroll: 1000, UnitSize: 10, KellyFraction: "half"},
	})

	rec := ts.do(t, http.MethodPost, "/api/kelly", "u1", `{"confidence": 60, "odds": "-110"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Sizing struct {
			Amount float64 `json:"amount"`
			Method string  `json:"method"`
		} `json:"sizing"`
		Tier string `json:"tier"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Sizing.Amount != 50 || out.Sizing.Method != "half" {
		t.Fatalf("sizing: %+v", out.Sizing)
	}
	if out.Tier != "good" {
		t.Fatalf("tier = %q", out.Tier)
	}
}

func TestAdminGradeForbiddenForFreeUser(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/admin/grade", "u1", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAdminGradeRunsForAdmin(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.profiles.Put(context.Background(), store.Profile{UID: "boss", Role: profile.RoleAdmin})

	rec := ts.do(t, http.MethodPost, "/api/admin/grade", "boss", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Graded int `json:"graded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Graded != 0 {
		t.Fatalf("graded = %d", out.Graded)
	}
}

func TestClearEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/chat/send", "u1", `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/api/chat/today", "u1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/chat/open", "u1", "")
	var out struct {
		Messages []transcriptMessage `json:"messages"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if len(out.Messages) != 0 {
		t.Fatalf("messages after clear: %+v", out.Messages)
	}
}
