package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/config"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

const (
	testTitle  = "HPE 1.2TB SAS 12G Enterprise 10K SFF"
	searchPage = `<span id="ctl00_BodyContentPlaceHolder_lblDescription">` + testTitle + `</span>`
	buyPage    = `<html><body><h1 class="pdp-product-name">` + testTitle + `</h1><div data-product-sku="P00930-B21"></div></body></html>`
)

// upstream stands in for PartSurfer, buy.hpe.com and a chat-completions API.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Search.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("SearchText") != "P00930-B21" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/ShowPhoto.aspx", http.NotFound)
	mux.HandleFunc("/us/en/p/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/us/en/p/p00930-b21" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, buyPage)
	})
	mux.HandleFunc("/us/en/search", http.NotFound)
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		content := `{"title":"` + testTitle + `","marketing_description":"Enterprise SAS drive","sku":"P00930-B21","confidence":0.9}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// useConfig installs a test configuration pointing every upstream at base.
func useConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.Fetch.Live = true
	c.PartSurfer.BaseURL = base
	c.Buy.Enabled = true
	c.Buy.BaseURL = base
	c.Store.Driver = "sqlite"
	c.Store.DSN = filepath.Join(dir, "cache.db")
	c.Policy.Path = filepath.Join(dir, "policy.yaml")
	c.Batch.LogDir = filepath.Join(dir, "logs")
	c.Log.Level = "info"
	c.Sanitize()

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

func newTestEnv(t *testing.T, sinks ...fetcher.AttemptSink) *appEnv {
	t.Helper()
	env, err := initEnv(context.Background(), sinks...)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func TestInitEnv_Wiring(t *testing.T) {
	srv := upstream(t)
	useConfig(t, srv.URL)

	env := newTestEnv(t)
	assert.NotNil(t, env.Orchestrator)
	assert.NotNil(t, env.Store)
	assert.Nil(t, env.Publisher)
	assert.False(t, env.Arbiter.Enabled())
	assert.Equal(t, []string{"hpe.partsurfer", "hpe.partsurfer.photo", "hpe.buyhpe"}, env.Aggregator.Sources())
}

func TestInitEnv_Oracles(t *testing.T) {
	c := useConfig(t, "http://127.0.0.1:1")
	c.Store.DSN = ""
	c.LLM.OpenAI.APIKey = "sk-openai"
	c.LLM.DeepSeek.APIKey = "sk-ds"
	c.LLM.Anthropic.APIKey = "sk-ant"

	got := oracles()
	require.Len(t, got, 3)
	assert.Equal(t, "openai", got[0].Name())
	assert.Equal(t, "deepseek", got[1].Name())
	assert.Equal(t, "claude", got[2].Name())
}

func TestRunResolve_EndToEnd(t *testing.T) {
	srv := upstream(t)
	useConfig(t, srv.URL)

	ctx := fetcher.WithRunID(context.Background(), "run-1")
	jsonl, err := fetcher.NewJSONLSink(filepath.Join(cfg.Batch.LogDir, "batch-test.jsonl"))
	require.NoError(t, err)
	env := newTestEnv(t, jsonl)

	prefix := filepath.Join(t.TempDir(), "out", "parts")
	var out bytes.Buffer
	require.NoError(t, runResolve(ctx, &out, env, "run-1", []string{"p00930b21", "@@@"}, prefix))
	require.NoError(t, jsonl.Close())

	assert.Contains(t, out.String(), "Resolved 2 parts")
	assert.Contains(t, out.String(), prefix+".csv")

	data, err := os.ReadFile(prefix + ".csv")
	require.NoError(t, err)
	csv := string(data)
	assert.True(t, strings.HasPrefix(csv, "\ufeff"))
	assert.Contains(t, csv, testTitle)
	assert.Contains(t, csv, "invalid part number")
	assert.Contains(t, csv, "\r\n")

	_, err = os.Stat(prefix + "_semicolon.csv")
	require.NoError(t, err)

	row, ok, err := env.Store.GetRow(ctx, "P00930-B21")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testTitle, row.Buy.Title)

	n, err := env.Store.CountAttempts(ctx, "run-1")
	require.NoError(t, err)
	assert.Positive(t, n)

	attempts, err := os.ReadFile(jsonl.Path())
	require.NoError(t, err)
	assert.Equal(t, n, strings.Count(string(attempts), "\n"))
}

func TestRunAggregate_EndToEnd(t *testing.T) {
	srv := upstream(t)
	useConfig(t, srv.URL)
	env := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "agg.csv")
	var out bytes.Buffer
	require.NoError(t, runAggregate(context.Background(), &out, env, []string{"P00930-B21", "p00930-b21", ""}, path))
	assert.Contains(t, out.String(), "Aggregated 1 parts across 3 sources")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimPrefix(string(data), "\ufeff"), "\r\n")
	assert.Equal(t, "partNumber,hpe.partsurfer,hpe.partsurfer.photo,hpe.buyhpe", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "P00930-B21,"))
	assert.Contains(t, lines[1], model.NoData)
	assert.Contains(t, lines[1], testTitle)
}

func TestRunPart_Verify(t *testing.T) {
	srv := upstream(t)
	c := useConfig(t, srv.URL)
	c.Store.DSN = ""
	c.LLM.OpenAI.APIKey = "sk-test"
	c.LLM.OpenAI.BaseURL = srv.URL
	env := newTestEnv(t)
	require.True(t, env.Arbiter.Enabled())

	var out bytes.Buffer
	require.NoError(t, runPart(context.Background(), &out, env, "P00930-B21", true))

	var got partOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.NotNil(t, got.Row)
	assert.Equal(t, model.PartNumber("P00930-B21"), got.Row.Canonical)
	assert.Equal(t, model.StatusNoBOM, got.Row.Status)
	require.NotNil(t, got.Verdict)
	assert.True(t, got.Verdict.Enabled)
	assert.Equal(t, testTitle, got.Verdict.FinalTitle)
	assert.InDelta(t, 0.9, got.Verdict.Agreement, 0.0001)
	assert.False(t, got.Verdict.ManualCheck)
	assert.NotEmpty(t, got.Verdict.PromptHash)
}

func TestRunPart_VerifyWithoutOracle(t *testing.T) {
	srv := upstream(t)
	c := useConfig(t, srv.URL)
	c.Store.DSN = ""
	env := newTestEnv(t)

	err := runPart(context.Background(), &bytes.Buffer{}, env, "P00930-B21", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.openai.api_key")
}

func TestRunPart_Offline(t *testing.T) {
	srv := upstream(t)
	c := useConfig(t, srv.URL)
	c.Store.DSN = ""
	c.Fetch.Live = false
	env := newTestEnv(t)

	var out bytes.Buffer
	require.NoError(t, runPart(context.Background(), &out, env, "P00930-B21", false))

	var got partOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, model.StatusCheckManually, got.Row.Status)
	assert.Nil(t, got.Verdict)
}

func TestRunPart_Invalid(t *testing.T) {
	c := useConfig(t, "http://127.0.0.1:1")
	c.Store.DSN = ""
	env := newTestEnv(t)

	err := runPart(context.Background(), &bytes.Buffer{}, env, "   ", false)
	assert.ErrorIs(t, err, model.ErrInvalidPartNumber)
}
