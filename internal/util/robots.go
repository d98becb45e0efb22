package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a page may be fetched, caching robots.txt per host
type RobotsPolicy struct {
	mu         sync.RWMutex
	hosts      map[string]*robotstxt.RobotsData
	httpClient *http.Client
	userAgent  string
	agent      string
}

// NewRobotsPolicy creates a policy that fetches robots.txt with client
func NewRobotsPolicy(client *http.Client, userAgent string) *RobotsPolicy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsPolicy{
		hosts:      make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
		agent:      ProductToken(userAgent),
	}
}

// Allowed reports whether rawURL may be fetched. An unreachable or
// unparseable robots.txt allows everything.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("parse URL: missing host in %q", rawURL)
	}

	data := p.rules(ctx, u)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, p.agent), nil
}

func (p *RobotsPolicy) rules(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(u.Host)

	p.mu.RLock()
	data, ok := p.hosts[host]
	p.mu.RUnlock()
	if ok {
		return data
	}

	data = p.fetch(ctx, u.Scheme+"://"+u.Host+"/robots.txt")

	p.mu.Lock()
	p.hosts[host] = data
	p.mu.Unlock()
	return data
}

func (p *RobotsPolicy) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

// ProductToken returns the product name of a User-Agent, "Precedent/0.1 (+url)" -> "Precedent"
func ProductToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	return strings.SplitN(fields[0], "/", 2)[0]
}
