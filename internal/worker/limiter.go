package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate limits outbound requests per host
type Limiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

// NewLimiter creates a limiter allowing rps requests per second per host
func NewLimiter(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		hosts: make(map[string]*rate.Limiter),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

// Wait blocks until a request to rawURL's host is permitted
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request to rawURL's host may happen now
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.AllowKey(host)
}

// AllowKey reports whether one more event for an arbitrary key, such as a
// client address, may happen now
func (l *Limiter) AllowKey(key string) bool {
	return l.forHost(strings.ToLower(key)).Allow()
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.hosts[host] = lim
	}
	return lim
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	return strings.ToLower(u.Host), nil
}
