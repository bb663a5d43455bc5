package extract

import (
	"net/url"
	"regexp"
	"strings"
)

var trackingParam = regexp.MustCompile(`(?i)^(utm_|cid$|cmpid$|gclid$|s_kwcid$|icid$)`)

// Absolutize resolves raw against base and normalizes the result with
// NormalizeURL. It returns "" when raw is empty or cannot be parsed.
func Absolutize(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if b, err := url.Parse(base); err == nil && base != "" {
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return NormalizeURL(ref.String())
}

// NormalizeURL forces https and drops marketing tracking parameters. Values
// that are not absolute http(s) URLs are returned trimmed but otherwise
// unchanged.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return raw
	}
	u.Scheme = "https"
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if trackingParam.MatchString(key) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// StripQuery drops the query string and fragment and forces https.
func StripQuery(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = "https"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
