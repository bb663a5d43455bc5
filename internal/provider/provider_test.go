package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/resilience"
)

// pages is a Getter backed by canned bodies and statuses keyed by URL.
type pages struct {
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	calls  []string
}

func newPages() *pages {
	return &pages{bodies: map[string]string{}, status: map[string]int{}}
}

func (p *pages) Fetch(ctx context.Context, target string) (*fetcher.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, target)
	if code, ok := p.status[target]; ok {
		return nil, &fetcher.HTTPError{Status: code, URL: target, Missing: fetcher.MissingStatus(ctx, code)}
	}
	body, ok := p.bodies[target]
	if !ok {
		return nil, &fetcher.HTTPError{Status: http.StatusNotFound, URL: target}
	}
	return &fetcher.Response{Body: []byte(body), FinalURL: target, Status: http.StatusOK}, nil
}

func (p *pages) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func TestPartSurfer_URLs(t *testing.T) {
	assert.Equal(t, "https://partsurfer.hpe.com/Search.aspx?SearchText=511778-001", NewSearch(nil, "").URL("511778-001"))
	assert.Equal(t, "https://partsurfer.hpe.com/ShowPhoto.aspx?partnumber=AF573A", NewPhoto(nil, "https://partsurfer.hpe.com/").URL("AF573A"))
}

func TestPartSurfer_Search(t *testing.T) {
	p := newPages()
	s := NewSearch(p, "")
	p.bodies[s.URL("511778-001")] = `<span id="ctl00_BodyContentPlaceHolder_lblDescription">HPE Enclosure</span>`

	res, err := s.Lookup(context.Background(), "511778-001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoBOM, res.Record.Status())
	assert.Equal(t, "HPE Enclosure", res.Record.Search.Description)
	assert.Equal(t, s.URL("511778-001"), res.QueryURL)
	assert.NotEmpty(t, res.HTML)
}

func TestPartSurfer_MissingPages(t *testing.T) {
	p := newPages()
	photo := NewPhoto(p, "")
	search := NewSearch(p, "")
	p.status[photo.URL("AF573A")] = http.StatusForbidden
	p.status[search.URL("AF573A")] = http.StatusForbidden

	res, err := photo.Lookup(context.Background(), "AF573A")
	require.NoError(t, err)
	assert.True(t, res.Record.NotFound)
	assert.Equal(t, model.ProviderPhoto, res.Record.Provider())

	res, err = search.Lookup(context.Background(), "AF573A")
	assert.ErrorIs(t, err, model.ErrUpstreamBlocked)
	assert.Equal(t, search.URL("AF573A"), res.QueryURL)

	res, err = search.Lookup(context.Background(), "404404")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotFound, res.Record.Status())
}

func TestPartSurfer_RealFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ShowPhoto.aspx", r.URL.Path)
		fmt.Fprintf(w, `<span id="ctl00_BodyContentPlaceHolder_lblDescription">Part %s</span><img class="part-image" src="/img/a.jpg">`,
			r.URL.Query().Get("partnumber"))
	}))
	defer srv.Close()

	f, err := fetcher.New(fetcher.Options{
		Name:  "Photo",
		Live:  true,
		Retry: resilience.RetryConfig{MaxAttempts: 1},
	})
	require.NoError(t, err)

	res, err := NewPhoto(f, srv.URL).Lookup(context.Background(), "AF573A")
	require.NoError(t, err)
	assert.Equal(t, "Part AF573A", res.Record.Photo.Title)
	assert.Contains(t, res.Record.Photo.ImageURL, "/img/a.jpg")
	assert.Equal(t, model.StatusOK, res.Record.Status())
}

func TestPartSurfer_PhotoMissesKeepSharedFetcherOpen(t *testing.T) {
	var photoHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ShowPhoto.aspx" {
			photoHits.Add(1)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `<span id="ctl00_BodyContentPlaceHolder_lblDescription">HPE Enclosure</span>`)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{Threshold: 5, Cooldown: time.Hour})
	f, err := fetcher.New(fetcher.Options{
		Name:    "PartSurfer",
		Live:    true,
		Breaker: breaker,
		Retry:   resilience.RetryConfig{MaxAttempts: 3},
	})
	require.NoError(t, err)
	photo, search := NewPhoto(f, srv.URL), NewSearch(f, srv.URL)

	for _, pn := range []model.PartNumber{"AF573A", "AF574A", "AF575A", "AF576A", "AF577A", "AF578A"} {
		res, err := photo.Lookup(context.Background(), pn)
		require.NoError(t, err)
		assert.True(t, res.Record.NotFound)
	}
	assert.Equal(t, int32(6), photoHits.Load())
	assert.Equal(t, resilience.CircuitClosed, breaker.State())

	res, err := search.Lookup(context.Background(), "511778-001")
	require.NoError(t, err)
	assert.Equal(t, "HPE Enclosure", res.Record.Search.Description)
}

func TestPartSurfer_LiveDisabled(t *testing.T) {
	f, err := fetcher.New(fetcher.Options{Name: "Search"})
	require.NoError(t, err)

	_, err = NewSearch(f, "").Lookup(context.Background(), "511778-001")
	assert.ErrorIs(t, err, model.ErrLiveModeDisabled)
}
