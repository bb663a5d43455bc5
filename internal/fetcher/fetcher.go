// Package fetcher downloads catalog pages with retry, pacing, rate limiting
// and session rotation, and reads part-number lists from txt, csv and xlsx
// files.
package fetcher

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/resilience"
)

// DefaultUserAgent identifies the resolver when no rotation pool is set.
const DefaultUserAgent = "Mozilla/5.0 (compatible; HPEPartSurferBot/1.0)"

const maxBodyBytes = 8 << 20

// Options configures one Fetcher.
type Options struct {
	// Name labels attempts and log lines, e.g. "Search" or "Buy".
	Name string

	// Live enables network access. When false every Fetch fails with
	// model.ErrLiveModeDisabled unless overridden with WithLive.
	Live bool

	// Timeout bounds each attempt. Default: 10s.
	Timeout time.Duration

	// Retry controls attempts and backoff. Zero value uses
	// resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig

	// UserAgents is the rotation pool. Empty means a single-entry pool of
	// UserAgent (or DefaultUserAgent).
	UserAgents []string
	UserAgent  string

	// PaceMin and PaceMax bound a random sleep before every attempt.
	PaceMin time.Duration
	PaceMax time.Duration

	// RPS is the shared token-bucket rate. Non-positive disables limiting.
	RPS float64

	// ProxyURL routes requests through an HTTP proxy.
	ProxyURL string

	// Sink receives one record per attempt. Errors are logged and dropped.
	Sink AttemptSink

	// Breaker rejects calls while the host keeps blocking us. Optional.
	Breaker *resilience.Breaker

	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper

	// Clock drives pacing and backoff. Default: resilience.SystemClock.
	Clock resilience.Clock

	// Seed makes UA shuffling and pacing deterministic when non-zero.
	Seed uint64
}

// Response is a successful fetch.
type Response struct {
	Body     []byte
	FinalURL string
	Status   int
	Header   http.Header
}

// Fetcher is a resilient HTTP GET client for one upstream host. Rotation
// state, cookie jar and limiter belong to the instance and are never shared.
type Fetcher struct {
	opts    Options
	client  *http.Client
	limiter *AdaptiveLimiter
	retry   resilience.RetryConfig

	mu      sync.Mutex
	rng     *rand.Rand
	session *session
}

// New builds a Fetcher from opts.
func New(opts Options) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = resilience.SystemClock
	}
	if opts.PaceMax < opts.PaceMin {
		opts.PaceMax = opts.PaceMin
	}
	if len(opts.UserAgents) == 0 {
		ua := opts.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		opts.UserAgents = []string{ua}
	}

	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConnsPerHost = 10
		t.IdleConnTimeout = 90 * time.Second
		if opts.ProxyURL != "" {
			proxy, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, eris.Wrapf(err, "fetcher: parse proxy url %q", opts.ProxyURL)
			}
			t.Proxy = http.ProxyURL(proxy)
		}
		base = t
	}

	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
	}
	retry.Clock = opts.Clock

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	f := &Fetcher{
		opts:   opts,
		client: &http.Client{Transport: otelhttp.NewTransport(base)},
		retry:  retry,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	if opts.RPS > 0 {
		f.limiter = NewAdaptiveLimiter(rate.Limit(opts.RPS), 1)
	}
	// The session owns its generator; f.rng is guarded by f.mu only.
	f.session = newSession(opts.UserAgents, rand.New(rand.NewPCG(seed^0xbf58476d1ce4e5b9, seed)))
	return f, nil
}

// Name returns the provider label of this fetcher.
func (f *Fetcher) Name() string { return f.opts.Name }

// Attempts returns the configured total attempt budget.
func (f *Fetcher) Attempts() int { return f.retry.MaxAttempts }

// Fetch GETs target and returns the body of a 2xx response. Failures carry
// the model taxonomy: ErrLiveModeDisabled, ErrNotFound (404/410 and statuses
// declared with WithMissing), ErrUpstreamBlocked (403/429, challenge pages),
// ErrUpstreamTerminal (other 4xx) and ErrUpstreamTransient (5xx, transport
// errors, timeouts, exhausted budget, cancellation).
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Response, error) {
	if !liveFrom(ctx, f.opts.Live) {
		return nil, eris.Wrapf(model.ErrLiveModeDisabled, "fetcher: %s %s", f.opts.Name, target)
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, eris.Wrapf(model.ErrUpstreamTerminal, "fetcher: invalid url %q", target)
	}
	if err := f.opts.Breaker.Allow(); err != nil {
		return nil, eris.Wrapf(err, "fetcher: %s", f.opts.Name)
	}

	cfg := f.retry
	cfg.OnRetry = resilience.RetryLogger(f.opts.Name, target)
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context, attempt int) (*Response, error) {
		return f.attempt(ctx, target, attempt)
	})
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, model.Tag(eris.Wrapf(ctx.Err(), "fetcher: %s %s", f.opts.Name, target), model.ErrUpstreamTransient)
	}
	return nil, err
}

func (f *Fetcher) attempt(ctx context.Context, target string, attempt int) (*Response, error) {
	log := zap.L().With(
		zap.String("provider", f.opts.Name),
		zap.String("url", target),
		zap.Int("attempt", attempt+1),
	)

	if err := f.pace(ctx); err != nil {
		return nil, err
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, model.Tag(eris.Wrap(err, "fetcher: rate limiter wait"), model.ErrUpstreamTransient)
		}
	}

	actx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	ua, uaID, cookie := f.session.next()
	req, err := http.NewRequestWithContext(actx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrapf(model.ErrUpstreamTerminal, "fetcher: build request: %v", err)
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	rec := model.ProviderAttempt{
		ID:        uuid.NewString(),
		RunID:     RunIDFrom(ctx),
		SKU:       SKUFrom(ctx),
		Timestamp: f.opts.Clock.Now().UTC(),
		Provider:  f.opts.Name,
		Method:    http.MethodGet,
		URL:       target,
		Attempt:   attempt + 1,
		Retries:   f.retry.MaxAttempts - 1,
		UAID:      uaID,
	}
	start := time.Now()

	resp, body, err := f.do(req)
	if resp != nil {
		rec.HTTPStatus = resp.StatusCode
		rec.Bytes = len(body)
		f.session.absorb(resp.Cookies())
	}
	if err == nil {
		err = f.classify(ctx, resp, body, target)
	}
	if err != nil && ctx.Err() == nil && actx.Err() != nil {
		err = model.Tag(eris.Wrapf(actx.Err(), "fetcher: attempt timeout after %s", f.opts.Timeout), model.ErrUpstreamTransient)
	}

	rec.Duration = time.Since(start)
	rec.DurationMS = rec.Duration.Milliseconds()
	rec.Outcome = resilience.Classify(err)
	rec.Success = err == nil
	if err != nil {
		rec.Error = err.Error()
	}
	f.emit(ctx, rec)
	f.opts.Breaker.Record(err)

	if err != nil {
		log.Debug("fetch attempt failed", zap.Int("status", rec.HTTPStatus), zap.Error(err))
		if errors.Is(err, model.ErrUpstreamBlocked) {
			f.session.reset()
			if f.limiter != nil && rec.HTTPStatus == http.StatusTooManyRequests {
				f.limiter.OnRateLimit()
			}
		}
		return nil, err
	}

	if f.limiter != nil {
		f.limiter.OnSuccess()
	}
	log.Debug("fetch attempt ok", zap.Int("status", rec.HTTPStatus), zap.Int("bytes", rec.Bytes))
	return &Response{
		Body:     body,
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Header:   resp.Header,
	}, nil
}

func (f *Fetcher) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, model.Tag(eris.Wrapf(err, "fetcher: %s %s", f.opts.Name, req.URL), model.ErrUpstreamTransient)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp, body, model.Tag(eris.Wrapf(err, "fetcher: read body from %s", req.URL), model.ErrUpstreamTransient)
	}
	return resp, body, nil
}

func (f *Fetcher) classify(ctx context.Context, resp *http.Response, body []byte, target string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if blocked, kind := DetectBlock(resp, body); blocked {
			return model.Tag(eris.Errorf("fetcher: %s served a %s page for %s", f.opts.Name, kind, target),
				model.ErrUpstreamBlocked, model.ErrUpstreamTransient)
		}
		return nil
	}
	return &HTTPError{Status: resp.StatusCode, URL: target, Missing: MissingStatus(ctx, resp.StatusCode)}
}

func (f *Fetcher) pace(ctx context.Context) error {
	if f.opts.PaceMax <= 0 {
		return nil
	}
	d := f.opts.PaceMin
	if span := f.opts.PaceMax - f.opts.PaceMin; span > 0 {
		f.mu.Lock()
		d += time.Duration(f.rng.Int64N(int64(span) + 1))
		f.mu.Unlock()
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return model.Tag(eris.Wrap(ctx.Err(), "fetcher: pacing"), model.ErrUpstreamTransient)
	case <-f.opts.Clock.After(d):
		return nil
	}
}

func (f *Fetcher) emit(ctx context.Context, rec model.ProviderAttempt) {
	if f.opts.Sink == nil {
		return
	}
	if err := f.opts.Sink.Record(ctx, rec); err != nil {
		zap.L().Warn("attempt sink failed", zap.String("provider", rec.Provider), zap.Error(err))
	}
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Status int
	URL    string
	// Missing is set when the caller declared Status a not-found answer
	// (see WithMissing). Such errors match only ErrNotFound.
	Missing bool
}

func (e *HTTPError) Error() string {
	return "fetcher: http " + strconv.Itoa(e.Status) + " from " + e.URL
}

// Is maps the status onto the model error taxonomy.
func (e *HTTPError) Is(target error) bool {
	if e.Missing {
		return target == model.ErrNotFound
	}
	switch target {
	case model.ErrNotFound:
		return e.Status == http.StatusNotFound || e.Status == http.StatusGone
	case model.ErrUpstreamBlocked:
		return resilience.IsBlockedHTTPStatus(e.Status)
	case model.ErrUpstreamTransient:
		return resilience.IsTransientHTTPStatus(e.Status)
	case model.ErrUpstreamTerminal:
		return e.Status >= 400 && e.Status < 500 && !resilience.IsTransientHTTPStatus(e.Status) &&
			e.Status != http.StatusNotFound && e.Status != http.StatusGone
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
