package factcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ppiankov/precedent/internal/model"
)

// ErrAPIStatus is returned for non-200 responses from the search API
var ErrAPIStatus = errors.New("fact-check API returned non-200 status")

const maxResponseBytes = 4 << 20

// searchResponse mirrors the claims:search payload
type searchResponse struct {
	Claims []struct {
		Text         string `json:"text"`
		Claimant     string `json:"claimant"`
		ClaimDate    string `json:"claimDate"`
		LanguageCode string `json:"languageCode"`
		ClaimReview  []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			ReviewDate    string `json:"reviewDate"`
			TextualRating string `json:"textualRating"`
			LanguageCode  string `json:"languageCode"`
		} `json:"claimReview"`
	} `json:"claims"`
	NextPageToken string `json:"nextPageToken"`
}

// searchRaw issues a single claims:search request and flattens every claim
// review into a result, keeping at most pageSize results.
func (c *Client) searchRaw(ctx context.Context, query string, pageSize int) ([]model.SearchResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.cfg.APIKey)
	params.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the request URL, which includes the API key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("execute request: %s: %w", uerr.Op, uerr.Err)
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrAPIStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var out []model.SearchResult
	for _, claim := range payload.Claims {
		lang := claim.LanguageCode
		if lang == "" {
			lang = "en"
		}
		for _, review := range claim.ClaimReview {
			publisher := review.Publisher.Name
			if publisher == "" {
				publisher = "Unknown"
			}
			rating := review.TextualRating
			if rating == "" {
				rating = "No rating"
			}
			out = append(out, model.SearchResult{
				Source:     model.SourceExternal,
				Publisher:  publisher,
				Claim:      claim.Text,
				Rating:     rating,
				URL:        review.URL,
				ReviewDate: review.ReviewDate,
				Language:   lang,
			})
		}
	}

	if len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}
