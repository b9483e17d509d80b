// Package provider defines the contract between the dialogue orchestrator and
// the LLM backends, plus the shared wire types for the chat-completions
// request/response exchange.
//
// Backends differ in authentication lifecycle: GigaChat exchanges a long-lived
// secret for short-lived access tokens (see the gigachat subpackage), while
// OpenRouter uses a static API key (see the openrouter subpackage). Both
// implement Provider and surface failures as *AuthError or *ProviderError —
// never as a panic across this boundary.
package provider

import "context"

// Message roles on the chat-completions wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Immutable once created.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries one outbound completion request.
//
// System, when non-empty, is prepended as exactly one system message; the
// caller leaves it empty to disable system instructions. Messages are
// appended verbatim, in order, after the system message.
//
// Temperature and MaxTokens pass through unmodified; bounds are enforced by
// the session store, not here.
type ChatRequest struct {
	System      string
	Messages    []Message
	Model       string // backend-specific model key (e.g. "deepseek")
	Temperature float64
	MaxTokens   int
}

// Usage holds token accounting as reported by the backend. Counters are
// passed through, never recomputed.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply is a successful backend response.
type Reply struct {
	Content string
	Usage   *Usage // nil when the backend does not report usage
}

// Provider sends a chat completion request to one backend.
//
// Implementations must return either a *Reply or an error wrapping
// *AuthError/*ProviderError; transport faults never escape unhandled.
type Provider interface {
	// Name returns the backend identifier (config.BackendGigaChat etc.).
	Name() string

	// Send issues the request. It honors ctx for cancellation; the call is
	// a suspension point and must not hold any session state.
	Send(ctx context.Context, req ChatRequest) (*Reply, error)
}

// OutboundMessages assembles the wire message list for req: one optional
// system message followed by the history verbatim.
func OutboundMessages(req ChatRequest) []Message {
	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: req.System})
	}
	return append(msgs, req.Messages...)
}
