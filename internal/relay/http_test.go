package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serveJSON(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteParsesToolUse(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{
		"content": [
			{"type": "text", "text": "adding it now"},
			{"type": "tool_use", "id": "tu1", "name": "add_bet", "input": {"sport": "nba"}}
		],
		"stop_reason": "tool_use"
	}`)

	c := NewHTTP(srv.URL, 5*time.Second)
	resp, err := c.Complete(context.Background(), Request{Model: "m", MaxTokens: 64})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.StopReason != StopToolUse {
		t.Errorf("stop_reason = %q", resp.StopReason)
	}
	tu := resp.FirstToolUse()
	if tu == nil || tu.Name != "add_bet" {
		t.Fatalf("tool use: %+v", tu)
	}
	var input map[string]string
	if err := json.Unmarshal(tu.Input, &input); err != nil || input["sport"] != "nba" {
		t.Fatalf("tool input: %s", tu.Input)
	}
}

func TestCompleteSendsRequestBody(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewHTTP(srv.URL, 5*time.Second)
	req := Request{
		Model:     "some-model",
		MaxTokens: 1024,
		System:    "you are a test",
		Messages:  []Message{{Role: RoleUser, Text: "hi"}},
		Tools:     BetTools(),
	}
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Model != "some-model" || got.MaxTokens != 1024 || got.System != "you are a test" {
		t.Fatalf("request head: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Text != "hi" {
		t.Fatalf("request messages: %+v", got.Messages)
	}
	if len(got.Tools) != 3 {
		t.Fatalf("request tools: %d", len(got.Tools))
	}
}

func TestCompleteNon2xx(t *testing.T) {
	srv := serveJSON(t, http.StatusTooManyRequests, `{"type":"error","error":{"message":"overloaded"}}`)
	c := NewHTTP(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatalf("expected error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestCompleteErrorTypedBody(t *testing.T) {
	// A misbehaving proxy can hand back an error body with a 200.
	srv := serveJSON(t, http.StatusOK, `{"type":"error","error":{"message":"invalid api key"}}`)
	c := NewHTTP(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("error body not surfaced: %v", err)
	}
}

func TestCompleteEmptyContentIsProtocolError(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"content":[]}`)
	c := NewHTTP(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestCompleteMalformedBodyIsProtocolError(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `<html>gateway timeout</html>`)
	c := NewHTTP(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestCompleteConnectionRefused(t *testing.T) {
	c := NewHTTP("http://127.0.0.1:1", 500*time.Millisecond)
	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatalf("expected transport error")
	}
}
