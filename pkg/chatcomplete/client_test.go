package chatcomplete

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    string
		wantID     string
		wantTokens int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-123",
				"model": "gpt-4o-mini",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"title\":\"x\"}"}}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5}
			}`,
			wantID:     "cmpl-123",
			wantTokens: 5,
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error": "rate limit exceeded"}`,
			wantErr: "unexpected status 429",
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "internal server error"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.ChatCompletion(context.Background(), Request{
				Messages: []Message{{Role: "user", Content: "Hi"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantID, resp.ID)
			assert.Equal(t, `{"title":"x"}`, resp.Content())
			assert.Equal(t, tt.wantTokens, resp.Usage.CompletionTokens)
		})
	}
}

func TestChatCompletion_RequestBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.0, *req.Temperature)

		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}],"usage":{}}`))
	}))
	defer srv.Close()

	temp := 0.0
	client := NewClient("test-key", WithBaseURL(srv.URL+"/"), WithModel(DeepSeekModel))
	assert.Equal(t, DeepSeekModel, client.Model())
	_, err := client.ChatCompletion(context.Background(), Request{
		Messages:       []Message{{Role: "user", Content: "test"}},
		Temperature:    &temp,
		ResponseFormat: JSONObject,
	})
	require.NoError(t, err)
}

func TestRequestModelOverridesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		_, _ = w.Write([]byte(`{"id":"1","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.ChatCompletion(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content())
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ChatCompletion(ctx, Request{
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	c := NewClient("my-key", WithBaseURL(""), WithModel(""))
	hc := c.(*httpClient)
	assert.Equal(t, "my-key", hc.apiKey)
	assert.Equal(t, OpenAIBaseURL, hc.baseURL)
	assert.Equal(t, OpenAIModel, hc.model)
	assert.NotNil(t, hc.http.Transport)

	custom := &http.Client{}
	hc = NewClient("k", WithHTTPClient(custom)).(*httpClient)
	assert.Equal(t, custom, hc.http)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad-key", WithBaseURL(srv.URL)).ChatCompletion(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Contains(t, err.Error(), "invalid api key")
}
