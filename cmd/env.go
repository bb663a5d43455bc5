package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/aggregate"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/arbiter"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/provider"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/publish"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/resilience"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/resolve"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/store"
	anthropicpkg "github.com/ftsl575/jarvis.hpe-v1.0.0/pkg/anthropic"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/pkg/chatcomplete"
)

// appEnv holds every initialized component the commands need. It is built
// once per process by initEnv.
type appEnv struct {
	Orchestrator *resolve.Orchestrator
	Aggregator   *aggregate.Aggregator
	Arbiter      *arbiter.Arbiter
	Buy          *provider.Buy
	Store        store.Store        // nil when store.dsn is empty
	Publisher    *publish.Publisher // nil when nats.url is empty
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Publisher != nil {
		if err := e.Publisher.Close(); err != nil {
			zap.L().Warn("close publisher", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds the fetchers, providers and engines from cfg. Extra sinks
// receive every fetch attempt alongside the store. Callers should defer
// env.Close().
func initEnv(ctx context.Context, sinks ...fetcher.AttemptSink) (*appEnv, error) {
	env := &appEnv{}

	policy, err := resolve.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Store.DSN != "" {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
		sinks = append(sinks, store.Sink{Store: st})
	} else {
		zap.L().Debug("store.dsn not set, row cache disabled")
	}

	var sink fetcher.AttemptSink
	if len(sinks) > 0 {
		sink = fetcher.MultiSink(sinks)
	}

	psFetcher, err := newFetcher("PartSurfer", sink, cfg.PartSurfer.RotateUA, 0, 0)
	if err != nil {
		env.Close()
		return nil, err
	}
	buyFetcher, err := newFetcher("Buy", sink, true, cfg.Buy.PaceMinMS, cfg.Buy.PaceMaxMS)
	if err != nil {
		env.Close()
		return nil, err
	}

	search := provider.NewSearch(psFetcher, cfg.PartSurfer.BaseURL)
	photo := provider.NewPhoto(psFetcher, cfg.PartSurfer.BaseURL)
	env.Buy = provider.NewBuy(buyFetcher, cfg.Buy.BaseURL, cfg.Buy.Locale)

	if cfg.NATS.URL != "" {
		pub, err := publish.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			zap.L().Warn("nats unavailable, row events disabled", zap.String("url", cfg.NATS.URL), zap.Error(err))
		} else {
			env.Publisher = pub
		}
	}

	opts := resolve.Options{
		Providers: []provider.Provider{search, photo},
		Policy:    policy,
	}
	if cfg.Buy.Enabled {
		opts.Supplementary = []provider.Provider{env.Buy}
	}
	if env.Store != nil {
		opts.Cache = env.Store
	}
	if env.Publisher != nil {
		opts.Publisher = env.Publisher
	}
	env.Orchestrator = resolve.New(opts)

	env.Aggregator = aggregate.New(cfg.Batch.Concurrency,
		aggregate.FromProvider(aggregate.SourcePartSurfer, search),
		aggregate.FromProvider(aggregate.SourcePhoto, photo),
		aggregate.FromProvider(aggregate.SourceBuy, env.Buy),
	)

	env.Arbiter = arbiter.New(oracles()...)
	if env.Arbiter.Enabled() {
		zap.L().Debug("arbiter enabled")
	}

	return env, nil
}

func newFetcher(name string, sink fetcher.AttemptSink, rotate bool, paceMinMS, paceMaxMS int) (*fetcher.Fetcher, error) {
	breakerCfg := resilience.FromBreakerConfig(cfg.Fetch.BreakerThreshold, cfg.Fetch.BreakerCooldownSecs)
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("circuit breaker state change",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	opts := fetcher.Options{
		Name:      name,
		Live:      cfg.Fetch.Live,
		Timeout:   time.Duration(cfg.Fetch.TimeoutMS) * time.Millisecond,
		Retry:     resilience.FromFetchConfig(cfg.Fetch.Retries, cfg.Fetch.BackoffBaseMS, cfg.Fetch.JitterMinMS, cfg.Fetch.JitterMaxMS),
		UserAgent: cfg.Fetch.UserAgent,
		PaceMin:   time.Duration(paceMinMS) * time.Millisecond,
		PaceMax:   time.Duration(paceMaxMS) * time.Millisecond,
		RPS:       cfg.Fetch.ThrottleRPS,
		ProxyURL:  cfg.Fetch.ProxyURL,
		Sink:      sink,
		Breaker:   resilience.NewBreaker(breakerCfg),
	}
	if rotate && cfg.Fetch.UserAgent == "" {
		opts.UserAgents = fetcher.BrowserUserAgents()
	}
	return fetcher.New(opts)
}

// oracles returns one oracle per configured LLM key, in a fixed order.
func oracles() []arbiter.Oracle {
	var out []arbiter.Oracle
	if c := cfg.LLM.OpenAI; c.APIKey != "" {
		client := chatcomplete.NewClient(c.APIKey, chatcomplete.WithBaseURL(c.BaseURL), chatcomplete.WithModel(c.Model))
		out = append(out, arbiter.NewChatOracle("openai", client))
	}
	if c := cfg.LLM.DeepSeek; c.APIKey != "" {
		client := chatcomplete.NewClient(c.APIKey,
			chatcomplete.WithBaseURL(orDefault(c.BaseURL, chatcomplete.DeepSeekBaseURL)),
			chatcomplete.WithModel(orDefault(c.Model, chatcomplete.DeepSeekModel)),
		)
		out = append(out, arbiter.NewChatOracle("deepseek", client))
	}
	if c := cfg.LLM.Anthropic; c.APIKey != "" {
		out = append(out, arbiter.NewClaudeOracle(anthropicpkg.NewClient(c.APIKey), c.Model))
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// verify runs the arbiter over the Buy.HPE page behind row. Rows served from
// the cache carry no page, so it is fetched again.
func (e *appEnv) verify(ctx context.Context, row *model.Row) model.Verdict {
	html := row.Evidence
	target := row.Buy.URL
	if html == "" && e.Buy != nil {
		res, err := e.Buy.Lookup(ctx, row.Canonical)
		if err != nil {
			zap.L().Warn("verify: buy page unavailable", zap.String("pn", string(row.Canonical)), zap.Error(err))
			return model.Verdict{}
		}
		html = res.HTML
		if b := res.Record.Buy; b != nil && model.IsHTTPURL(b.URL) {
			target = b.URL
		}
	}

	title := row.Buy.Title
	if title == "" {
		title = row.Title
	}
	return e.Arbiter.Arbitrate(ctx, arbiter.Evidence{
		HTML:                 html,
		ExpectedSKU:          string(row.Canonical),
		CandidateTitle:       title,
		CandidateDescription: row.Title,
		URL:                  target,
	})
}
