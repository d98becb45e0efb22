package model

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that never change what a URL points to
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// CanonicalURL lowercases scheme and host, drops the fragment, tracking
// parameters, a leading "www." and a trailing slash. Unparseable input is
// returned trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		u.RawQuery = q.Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// DedupByURL keeps the first result per canonical URL. Results without a URL
// are dropped.
func DedupByURL(results []SearchResult) []SearchResult {
	return DedupInto(results, make(map[string]bool, len(results)))
}

// DedupInto is DedupByURL against a caller-owned seen set, so several lists
// can share one namespace of URLs.
func DedupInto(results []SearchResult, seen map[string]bool) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		key := CanonicalURL(r.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
