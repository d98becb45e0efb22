package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/util"
	"github.com/ppiankov/precedent/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchBackoff is the wait after the first failed attempt. Each later attempt
// waits one more multiple of it.
var fetchBackoff = time.Second

const fetchAttempts = 3

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected status: " + e.Status
}

// Article is a fetched page reduced to its readable text
type Article struct {
	URL   string
	Title string
	Text  string
	HTML  string
}

// Fetcher downloads articles to pull claims from
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsPolicy // nil skips robots.txt
	limiter    *worker.Limiter    // nil fetches without pacing
}

// NewFetcher creates a fetcher from the fetch configuration
func NewFetcher(cfg model.FetchConfig) *Fetcher {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsPolicy(client, cfg.UserAgent)
	}
	if cfg.HostRate > 0 {
		f.limiter = worker.NewLimiter(cfg.HostRate, cfg.HostBurst)
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 2_000_000
	}
	return f
}

// Fetch retrieves rawURL and extracts its headline and body text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	body, finalURL, err := f.get(ctx, rawURL, "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	content := string(body)

	parsed, err := extract.ParseArticle(content)
	if err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}
	if parsed.Title == "" {
		parsed.Title = subjectFromURL(finalURL)
	}

	return &Article{
		URL:   finalURL,
		Title: parsed.Title,
		Text:  parsed.Text,
		HTML:  content,
	}, nil
}

// get downloads rawURL, honoring robots.txt and the body size cap. It
// returns the body and the URL after redirects.
func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("invalid URL: %q", rawURL)
	}

	if f.robots != nil {
		ok, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("robots.txt: %w", err)
		}
		if !ok {
			return nil, "", fmt.Errorf("fetch %s: %w", rawURL, ErrDisallowed)
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, "", fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", &fetchError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Request.URL.String(), nil
}

// FetchWithRetry retries transport errors, 429 and 5xx responses with
// linear backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Article, error) {
	return withRetry(ctx, func() (*Article, error) {
		return f.Fetch(ctx, rawURL)
	})
}

func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil || attempt == fetchAttempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * fetchBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// fetchError is a transport failure before any response arrived
type fetchError struct {
	err error
}

func (e *fetchError) Error() string { return "fetch: " + e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var fe *fetchError
	return errors.As(err, &fe)
}

// subjectFromURL turns the last path segment into a readable name
func subjectFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if i := strings.LastIndex(last, "."); i > 0 {
		last = last[:i]
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(last)
}
