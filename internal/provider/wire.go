package provider

import "encoding/json"

// CompletionRequest is the JSON request body both backends accept.
// Streaming is always disabled; replies arrive in one piece.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// CompletionResponse is the JSON response body both backends produce.
type CompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// ParseReply decodes a completion response body and extracts the assistant
// text plus any reported usage. An empty choices list is a malformed reply.
func ParseReply(body []byte) (*Reply, error) {
	var resp CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Body: "malformed response body: " + err.Error(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Body: "response contains no choices"}
	}

	return &Reply{
		Content: resp.Choices[0].Message.Content,
		Usage:   resp.Usage,
	}, nil
}
