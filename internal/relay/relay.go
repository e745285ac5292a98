// Package relay speaks the chat-completion wire protocol of the proxy
// worker sitting in front of the model API. Message content is either a
// plain string or a list of structured blocks (tool protocol payloads).
package relay

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"

	StopToolUse = "tool_use"
)

// Block is one structured content element of a message.
type Block struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Message is a single conversation turn. Blocks wins over Text when set.
type Message struct {
	Role   string
	Text   string
	Blocks []Block
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Blocks) > 0 {
		return json.Marshal(struct {
			Role    string  `json:"role"`
			Content []Block `json:"content"`
		}{m.Role, m.Blocks})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Text})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Text = ""
	m.Blocks = nil
	if len(raw.Content) == 0 {
		return nil
	}
	if raw.Content[0] == '"' {
		return json.Unmarshal(raw.Content, &m.Text)
	}
	return json.Unmarshal(raw.Content, &m.Blocks)
}

// Tool describes one callable tool in the request body.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
}

type Response struct {
	Content    []Block `json:"content"`
	StopReason string  `json:"stop_reason"`
}

// FirstToolUse returns the first tool_use block, or nil. The engine
// executes a single tool per round even if the model asked for several.
func (r Response) FirstToolUse() *Block {
	for i := range r.Content {
		if r.Content[i].Type == BlockToolUse {
			return &r.Content[i]
		}
	}
	return nil
}

// Text joins all text blocks of the reply.
func (r Response) Text() string {
	out := ""
	for _, b := range r.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// Client is the model boundary. Implementations must treat non-2xx and
// error-typed bodies as failures.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ProtocolError marks responses that came back 2xx but do not parse
// into the expected completion shape.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected relay response: %s", e.Detail)
}
