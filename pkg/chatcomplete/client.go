// Package chatcomplete is a minimal client for OpenAI-compatible
// chat completion APIs (OpenAI, DeepSeek).
package chatcomplete

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// OpenAIBaseURL is the default OpenAI endpoint.
	OpenAIBaseURL = "https://api.openai.com/v1"
	// OpenAIModel is the default OpenAI model.
	OpenAIModel = "gpt-4o-mini"
	// DeepSeekBaseURL is the default DeepSeek endpoint.
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	// DeepSeekModel is the default DeepSeek model.
	DeepSeekModel = "deepseek-chat"
)

// Client performs chat completions.
type Client interface {
	ChatCompletion(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request is the request body for POST /chat/completions.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat asks the model for a specific output shape.
type ResponseFormat struct {
	Type string `json:"type"`
}

// JSONObject requests a single JSON object as the reply.
var JSONObject = &ResponseFormat{Type: "json_object"}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the response from POST /chat/completions.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the first choice's message text, or "".
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Choice is a single completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// StatusError is returned for any non-200 reply.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatcomplete: unexpected status %d: %s", e.Status, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a chat completion client. Without options it talks to
// OpenAI with OpenAIModel.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: OpenAIBaseURL,
		model:   OpenAIModel,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: otelhttp.NewTransport(&http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Model() string { return c.model }

func (c *httpClient) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "chatcomplete: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "chatcomplete: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "chatcomplete: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "chatcomplete: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "chatcomplete: unmarshal response")
	}

	return &result, nil
}
