package arbiter

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/pkg/anthropic"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/pkg/chatcomplete"
)

// ChatOracle asks an OpenAI-compatible chat completion endpoint.
type ChatOracle struct {
	name   string
	client chatcomplete.Client
}

// NewChatOracle wraps client as an oracle called name.
func NewChatOracle(name string, client chatcomplete.Client) *ChatOracle {
	return &ChatOracle{name: name, client: client}
}

// Name implements Oracle.
func (o *ChatOracle) Name() string { return o.name }

// Ask implements Oracle.
func (o *ChatOracle) Ask(ctx context.Context, p Prompt) (model.OracleAnswer, error) {
	temp := 0.0
	resp, err := o.client.ChatCompletion(ctx, chatcomplete.Request{
		Messages: []chatcomplete.Message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature:    &temp,
		ResponseFormat: chatcomplete.JSONObject,
	})
	if err != nil {
		return model.OracleAnswer{}, eris.Wrapf(err, "arbiter: %s", o.name)
	}
	ans, err := ParseAnswer(resp.Content())
	if err != nil {
		return model.OracleAnswer{}, eris.Wrapf(err, "arbiter: %s", o.name)
	}
	ans.Oracle = o.name
	ans.Model = resp.Model
	if ans.Model == "" {
		ans.Model = o.client.Model()
	}
	return ans, nil
}

// ClaudeOracle asks the Anthropic Messages API.
type ClaudeOracle struct {
	client anthropic.Client
	model  string
}

// NewClaudeOracle wraps client. An empty modelID uses anthropic.DefaultModel.
func NewClaudeOracle(client anthropic.Client, modelID string) *ClaudeOracle {
	if modelID == "" {
		modelID = anthropic.DefaultModel
	}
	return &ClaudeOracle{client: client, model: modelID}
}

// Name implements Oracle.
func (o *ClaudeOracle) Name() string { return "claude" }

// Ask implements Oracle.
func (o *ClaudeOracle) Ask(ctx context.Context, p Prompt) (model.OracleAnswer, error) {
	temp := 0.0
	resp, err := o.client.Complete(ctx, anthropic.Request{
		Model:       o.model,
		System:      p.System,
		Prompt:      p.User,
		Temperature: &temp,
	})
	if err != nil {
		return model.OracleAnswer{}, eris.Wrap(err, "arbiter: claude")
	}
	zap.L().Debug("arbiter: claude usage",
		zap.String("model", resp.Model),
		zap.Int64("input_tokens", resp.InputTokens),
		zap.Int64("output_tokens", resp.OutputTokens),
		zap.Bool("truncated", resp.Truncated()),
	)

	ans, err := ParseAnswer(resp.Text)
	if err != nil {
		return model.OracleAnswer{}, eris.Wrap(err, "arbiter: claude")
	}
	ans.Oracle = o.Name()
	ans.Model = resp.Model
	return ans, nil
}
