// Package anthropic sends single-turn prompts to the Anthropic Messages API.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// DefaultModel is used when a request leaves Model empty.
const DefaultModel = "claude-haiku-4-5-20251001"

// DefaultMaxTokens bounds the reply when a request leaves MaxTokens zero.
const DefaultMaxTokens = 1024

// Client completes one prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is one system prompt plus one user turn.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int64
	// Temperature is sent only when set; nil keeps the API default.
	Temperature *float64
}

// Response is the text reply and its token accounting.
type Response struct {
	ID           string
	Model        string
	Text         string
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// Truncated reports whether the reply hit the token cap.
func (r *Response) Truncated() bool {
	return r != nil && r.StopReason == string(sdk.StopReasonMaxTokens)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client backed by anthropic-sdk-go. opts (base URL,
// retries) are passed to the SDK after the API key.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	return &sdkClient{
		client: sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
	}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, eris.New("anthropic: empty prompt")
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(orDefault(req.Model, DefaultModel)),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = DefaultMaxTokens
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return fromMessage(msg), nil
}

func fromMessage(msg *sdk.Message) *Response {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return &Response{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Text:         b.String(),
		StopReason:   string(msg.StopReason),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
