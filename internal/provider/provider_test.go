package provider

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundMessages(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "how are you?"},
	}

	t.Run("system message prepended once", func(t *testing.T) {
		msgs := OutboundMessages(ChatRequest{System: "be helpful", Messages: history})

		require.Len(t, msgs, 4)
		assert.Equal(t, Message{Role: RoleSystem, Content: "be helpful"}, msgs[0])
		assert.Equal(t, history, msgs[1:])
	})

	t.Run("empty system omitted", func(t *testing.T) {
		msgs := OutboundMessages(ChatRequest{Messages: history})

		require.Len(t, msgs, 3)
		assert.Equal(t, history, msgs)
	})

	t.Run("history order preserved", func(t *testing.T) {
		msgs := OutboundMessages(ChatRequest{System: "x", Messages: history})
		assert.Equal(t, "hello", msgs[1].Content)
		assert.Equal(t, "hi", msgs[2].Content)
		assert.Equal(t, "how are you?", msgs[3].Content)
	})
}

func TestParseReply(t *testing.T) {
	t.Run("content and usage extracted", func(t *testing.T) {
		body := `{
			"choices": [{"message": {"role": "assistant", "content": "42"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`

		reply, err := ParseReply([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, "42", reply.Content)
		require.NotNil(t, reply.Usage)
		assert.Equal(t, 10, reply.Usage.PromptTokens)
		assert.Equal(t, 2, reply.Usage.CompletionTokens)
		assert.Equal(t, 12, reply.Usage.TotalTokens)
	})

	t.Run("missing usage leaves nil", func(t *testing.T) {
		body := `{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`

		reply, err := ParseReply([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, "ok", reply.Content)
		assert.Nil(t, reply.Usage)
	})

	t.Run("empty choices is a provider error", func(t *testing.T) {
		_, err := ParseReply([]byte(`{"choices": []}`))

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("invalid json is a provider error", func(t *testing.T) {
		_, err := ParseReply([]byte(`{not json`))

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
	})
}

func TestRetryPolicy(t *testing.T) {
	t.Run("auth policy retries once on 401", func(t *testing.T) {
		p := AuthRetryPolicy()

		assert.True(t, p.Allow(0, http.StatusUnauthorized))
		assert.False(t, p.Allow(1, http.StatusUnauthorized), "second failure must not retry")
	})

	t.Run("auth policy ignores other statuses", func(t *testing.T) {
		p := AuthRetryPolicy()

		assert.False(t, p.Allow(0, http.StatusInternalServerError))
		assert.False(t, p.Allow(0, http.StatusTooManyRequests))
	})

	t.Run("no-retry policy never retries", func(t *testing.T) {
		p := NoRetryPolicy()

		assert.False(t, p.Allow(0, http.StatusUnauthorized))
	})

	t.Run("nil predicate never retries", func(t *testing.T) {
		p := RetryPolicy{MaxRetries: 3}

		assert.False(t, p.Allow(0, http.StatusUnauthorized))
	})
}
