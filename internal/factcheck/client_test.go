package factcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/cache"
	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
)

type review struct {
	publisher string
	rating    string
	url       string
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	handler  func(query string) (int, string)
	server   *httptest.Server
	lastKeys []string
}

type apiCall struct {
	query    string
	pageSize int
}

func newFakeAPI(t *testing.T, handler func(query string) (int, string)) *fakeAPI {
	t.Helper()
	api := &fakeAPI{handler: handler}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		size, _ := strconv.Atoi(q.Get("pageSize"))
		api.mu.Lock()
		api.calls = append(api.calls, apiCall{query: q.Get("query"), pageSize: size})
		api.lastKeys = append(api.lastKeys, q.Get("key"))
		api.mu.Unlock()

		status, body := api.handler(q.Get("query"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeAPI) call(query string) (apiCall, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.calls {
		if c.query == query {
			return c, true
		}
	}
	return apiCall{}, false
}

// payload builds a claims:search response with one claim per review
func payload(claim string, reviews ...review) string {
	type pub struct {
		Name string `json:"name,omitempty"`
	}
	type rev struct {
		Publisher     pub    `json:"publisher"`
		URL           string `json:"url"`
		TextualRating string `json:"textualRating,omitempty"`
		ReviewDate    string `json:"reviewDate"`
	}
	type cl struct {
		Text        string `json:"text"`
		ClaimReview []rev  `json:"claimReview"`
	}
	var claims []cl
	for _, r := range reviews {
		claims = append(claims, cl{
			Text:        claim,
			ClaimReview: []rev{{Publisher: pub{Name: r.publisher}, URL: r.url, TextualRating: r.rating, ReviewDate: "2024-01-02T00:00:00Z"}},
		})
	}
	data, _ := json.Marshal(map[string]any{"claims": claims})
	return string(data)
}

func testConfig(baseURL string) model.FactCheckConfig {
	cfg := model.DefaultConfig().FactCheck
	cfg.APIKey = "secret-key"
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 0
	return cfg
}

type stubExtractor struct {
	extraction extract.Extraction
	err        error
}

func (s stubExtractor) ExtractTermsAndClaims(context.Context, string) (extract.Extraction, error) {
	return s.extraction, s.err
}

func TestSearch_ShortQuery(t *testing.T) {
	api := newFakeAPI(t, func(query string) (int, string) {
		return http.StatusOK, payload("Vaccines cause autism",
			review{publisher: "Snopes", rating: "False", url: "https://snopes.example/1"},
			review{publisher: "", rating: "", url: "https://unknown.example/2"},
			review{publisher: "AFP", rating: "False", url: "https://afp.example/3"},
		)
	})

	client := NewClient(testConfig(api.server.URL), nil, nil, zap.NewNop())
	results, warnings := client.Search(context.Background(), "vaccines cause autism", 2)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if api.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", api.callCount())
	}
	if c, _ := api.call("vaccines cause autism"); c.pageSize != 2 {
		t.Errorf("pageSize = %d, want 2", c.pageSize)
	}
	if api.lastKeys[0] != "secret-key" {
		t.Errorf("key param = %q", api.lastKeys[0])
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	first := results[0]
	if first.Source != model.SourceExternal || first.Publisher != "Snopes" || first.Language != "en" {
		t.Errorf("first = %+v", first)
	}
	second := results[1]
	if second.Publisher != "Unknown" || second.Rating != "No rating" {
		t.Errorf("defaults not applied: %+v", second)
	}
	if second.ReviewDate != "2024-01-02T00:00:00Z" {
		t.Errorf("ReviewDate = %q", second.ReviewDate)
	}
}

func TestSearch_APIFailuresDegrade(t *testing.T) {
	tests := []struct {
		name    string
		handler func(string) (int, string)
		timeout time.Duration
	}{
		{"server error", func(string) (int, string) { return http.StatusInternalServerError, "oops" }, 0},
		{"forbidden", func(string) (int, string) { return http.StatusForbidden, `{"error": {}}` }, 0},
		{"malformed json", func(string) (int, string) { return http.StatusOK, `{"claims": [` }, 0},
		{"timeout", func(string) (int, string) {
			time.Sleep(300 * time.Millisecond)
			return http.StatusOK, `{}`
		}, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.handler)
			cfg := testConfig(api.server.URL)
			if tt.timeout > 0 {
				cfg.Timeout = tt.timeout
			}

			start := time.Now()
			results, warnings := NewClient(cfg, nil, nil, zap.NewNop()).Search(context.Background(), "anything at all", 5)

			if len(results) != 0 {
				t.Errorf("results = %v, want none", results)
			}
			if len(warnings) != 1 {
				t.Fatalf("warnings = %v, want 1", warnings)
			}
			if strings.Contains(warnings[0], "secret-key") {
				t.Errorf("warning leaks API key: %s", warnings[0])
			}
			if tt.timeout > 0 && time.Since(start) > 250*time.Millisecond {
				t.Errorf("timeout not enforced, took %v", time.Since(start))
			}
		})
	}
}

func TestSearch_StatusErrorWrapped(t *testing.T) {
	api := newFakeAPI(t, func(string) (int, string) { return http.StatusBadGateway, "" })
	client := NewClient(testConfig(api.server.URL), nil, nil, zap.NewNop())

	_, err := client.searchRaw(context.Background(), "q", 5)
	if !errors.Is(err, ErrAPIStatus) {
		t.Errorf("searchRaw() error = %v, want ErrAPIStatus", err)
	}
}

func TestSearch_LongQueryFansOut(t *testing.T) {
	api := newFakeAPI(t, func(query string) (int, string) {
		switch query {
		case "Claim one":
			return http.StatusOK, payload("Taxes doubled under the plan",
				review{publisher: "PolitiFact", rating: "False", url: "https://pf.example/taxes"})
		case "Claim two":
			return http.StatusOK, payload("Taxes doubled under the plan",
				review{publisher: "PolitiFact", rating: "False", url: "https://pf.example/taxes"})
		case "tax plan":
			return http.StatusOK, payload("Unrelated story about cats",
				review{publisher: "Snopes", rating: "True", url: "https://snopes.example/cats"},
				review{publisher: "Lead Stories", rating: "True", url: "https://lead.example/pets"})
		default:
			return http.StatusOK, payload("The tax plan raised rates",
				review{publisher: "FactCheck.org", rating: "Misleading", url: "https://fc.example/plan"})
		}
	})

	extractor := stubExtractor{extraction: extract.Extraction{
		Claims: []string{"Claim one", "Claim two", "Claim three", "Claim four"},
		Terms:  []string{"tax plan", "rates", "budget", "deficit"},
	}}

	long := strings.Repeat("The senator said the tax plan doubled taxes for families. ", 5)
	client := NewClient(testConfig(api.server.URL), extractor, nil, zap.NewNop())
	results, warnings := client.Search(context.Background(), long, 5)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	// 3 claims + 3 terms + raw query
	if api.callCount() != 7 {
		t.Errorf("calls = %d, want 7", api.callCount())
	}
	if _, ok := api.call("Claim four"); ok {
		t.Error("fourth claim should not be searched")
	}
	if c, _ := api.call("Claim one"); c.pageSize != 3 {
		t.Errorf("claim pageSize = %d, want 3", c.pageSize)
	}
	if c, _ := api.call("rates"); c.pageSize != 2 {
		t.Errorf("term pageSize = %d, want 2", c.pageSize)
	}
	if c, _ := api.call(long); c.pageSize != 5 {
		t.Errorf("raw query pageSize = %d, want 5", c.pageSize)
	}

	urls := map[string]int{}
	for _, r := range results {
		urls[r.URL]++
	}
	if urls["https://pf.example/taxes"] != 1 {
		t.Errorf("duplicate URL not collapsed: %v", urls)
	}
	if urls["https://fc.example/plan"] != 1 {
		t.Errorf("relevant raw result missing: %v", urls)
	}
	if urls["https://snopes.example/cats"] != 0 || urls["https://lead.example/pets"] != 0 {
		t.Errorf("irrelevant results kept: %v", urls)
	}
}

func TestSearch_ExtractionFailureFallsBack(t *testing.T) {
	api := newFakeAPI(t, func(string) (int, string) {
		return http.StatusOK, payload("Taxes doubled", review{publisher: "AFP", rating: "False", url: "https://afp.example/1"})
	})

	long := strings.Repeat("Taxes doubled for every family in the state last year. ", 5)
	client := NewClient(testConfig(api.server.URL), stubExtractor{err: errors.New("llm down")}, nil, zap.NewNop())
	results, warnings := client.Search(context.Background(), long, 5)

	if api.callCount() != 1 {
		t.Errorf("calls = %d, want only the raw query", api.callCount())
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "llm down") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestSearch_Disabled(t *testing.T) {
	api := newFakeAPI(t, func(string) (int, string) { return http.StatusOK, `{}` })

	cfg := testConfig(api.server.URL)
	cfg.APIKey = ""
	results, warnings := NewClient(cfg, nil, nil, zap.NewNop()).Search(context.Background(), "q", 5)

	if results != nil || warnings != nil {
		t.Errorf("disabled client returned %v, %v", results, warnings)
	}
	if api.callCount() != 0 {
		t.Errorf("disabled client made %d calls", api.callCount())
	}
}

func TestSearch_CachesRawCalls(t *testing.T) {
	api := newFakeAPI(t, func(string) (int, string) {
		return http.StatusOK, payload("Crime fell", review{publisher: "AFP", rating: "True", url: "https://afp.example/crime"})
	})

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewClient(testConfig(api.server.URL), nil, c, zap.NewNop())

	first, _ := client.Search(context.Background(), "crime fell", 5)
	second, _ := client.Search(context.Background(), "crime fell", 5)

	if api.callCount() != 1 {
		t.Errorf("calls = %d, want 1 with cache", api.callCount())
	}
	if len(first) != 1 || len(second) != 1 || second[0].URL != first[0].URL {
		t.Errorf("cached results differ: %v vs %v", first, second)
	}
}

func TestFilterRelevant(t *testing.T) {
	results := []model.SearchResult{
		{Claim: "Taxes doubled", Publisher: "AFP", URL: "u1"},
		{Claim: "Something else", Publisher: "Taxwatch", URL: "u2"},
		{Claim: "Other", Publisher: "X", URL: "https://example.com/taxes-story"},
		{Claim: "Nothing", Publisher: "Y", URL: "u4"},
	}

	got := FilterRelevant(results, []string{"tax"})
	if len(got) != 3 {
		t.Errorf("len(FilterRelevant) = %d, want 3", len(got))
	}

	if got := FilterRelevant(results, nil); len(got) != 4 {
		t.Errorf("no terms should keep everything, got %d", len(got))
	}
}
