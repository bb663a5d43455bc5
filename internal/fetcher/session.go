package fetcher

import (
	"crypto/sha1" //nolint:gosec // used as a short fingerprint, not for security
	"encoding/hex"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// session is the rotating identity of a Fetcher: a shuffled user-agent pool
// consumed without repetition and a name=value cookie jar.
type session struct {
	mu     sync.Mutex
	rng    *rand.Rand
	agents []string
	cursor int
	jar    map[string]string
	resets int
}

func newSession(agents []string, rng *rand.Rand) *session {
	s := &session{
		rng:    rng,
		agents: append([]string(nil), agents...),
		jar:    make(map[string]string),
	}
	s.shuffle()
	return s
}

func (s *session) shuffle() {
	s.rng.Shuffle(len(s.agents), func(i, j int) {
		s.agents[i], s.agents[j] = s.agents[j], s.agents[i]
	})
	s.cursor = 0
}

// next returns the user agent for the next request, its fingerprint, and
// the Cookie header to replay. The pool is reshuffled once exhausted.
func (s *session) next() (ua, uaID, cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.agents) {
		s.shuffle()
	}
	ua = s.agents[s.cursor]
	s.cursor++
	return ua, UAID(ua), s.cookieHeader()
}

func (s *session) cookieHeader() string {
	if len(s.jar) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.jar))
	for name := range s.jar {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + s.jar[name]
	}
	return strings.Join(pairs, "; ")
}

// absorb folds Set-Cookie values into the jar.
func (s *session) absorb(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		if c.MaxAge < 0 {
			delete(s.jar, c.Name)
			continue
		}
		s.jar[c.Name] = c.Value
	}
}

// reset drops all cookies and reshuffles the pool. Called when the upstream
// starts refusing us.
func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar = make(map[string]string)
	s.shuffle()
	s.resets++
}

func (s *session) resetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// UAID is the first 8 hex characters of sha1(ua).
func UAID(ua string) string {
	sum := sha1.Sum([]byte(ua)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:8]
}
