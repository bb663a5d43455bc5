package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMessage(t *testing.T) {
	resp := fromMessage(&sdk.Message{
		ID:         "msg_1",
		Model:      DefaultModel,
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `{"title":`},
			{Type: "thinking"},
			{Type: "text", Text: `"x"}`},
		},
		Usage: sdk.Usage{InputTokens: 100, OutputTokens: 50},
	})

	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Equal(t, `{"title":"x"}`, resp.Text)
	assert.Equal(t, int64(100), resp.InputTokens)
	assert.Equal(t, int64(50), resp.OutputTokens)
	assert.False(t, resp.Truncated())
}

func TestFromMessage_Empty(t *testing.T) {
	resp := fromMessage(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	assert.Empty(t, resp.Text)
	assert.True(t, resp.Truncated())

	var nilResp *Response
	assert.False(t, nilResp.Truncated())
}

func TestComplete_EmptyPrompt(t *testing.T) {
	_, err := NewClient("k").Complete(context.Background(), Request{Prompt: "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty prompt")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, DefaultModel, orDefault("", DefaultModel))
	assert.Equal(t, "claude-sonnet-4-5-20250929", orDefault("claude-sonnet-4-5-20250929", DefaultModel))
}
