// Package yelp wraps the Yelp Fusion business search API, used as a
// best-effort cuisine classifier. Absence of a match is a normal outcome,
// not an error: the pipeline simply leaves the cuisine field unset.
// Only transport and auth failures surface as errors.
package yelp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const (
	defaultBaseURL = "https://api.yelp.com"
	providerName   = "yelp"
)

// titleCaser renders lowercase category aliases ("izakaya") in display form
// when the API response lacks a display title.
var titleCaser = cases.Title(language.Und)

// Client calls the Yelp Fusion API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New constructs a Client with the given API key and per-call timeout.
func New(apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	Businesses []struct {
		Name       string `json:"name"`
		Categories []struct {
			Alias string `json:"alias"`
			Title string `json:"title"`
		} `json:"categories"`
	} `json:"businesses"`
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// FetchCuisine returns the cuisine label for a restaurant, or "" when the
// directory has no match. The provider's own ranking breaks ties: only the
// top result is considered, and its category titles are joined with ", ".
func (c *Client) FetchCuisine(ctx context.Context, name, city string) (string, error) {
	// The search API rejects a blank location, so a place without a resolved
	// city cannot be classified; treat it as absence.
	if strings.TrimSpace(name) == "" || strings.TrimSpace(city) == "" {
		return "", nil
	}
	q := url.Values{}
	q.Set("term", name)
	q.Set("location", city)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3/businesses/search?"+q.Encode(), nil)
	if err != nil {
		return "", domain.Wrap(domain.KindProviderError, providerName, err, "building search request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.Wrap(domain.KindTimeout, providerName, ctx.Err(), "cuisine lookup cancelled")
		}
		return "", domain.Wrap(domain.KindProviderError, providerName, err, "calling yelp api")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", domain.Fail(domain.KindRateLimited, providerName, "yelp api rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.Fail(domain.KindProviderError, providerName, "yelp api returned status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.Wrap(domain.KindProviderError, providerName, err, "decoding yelp response")
	}
	if out.Error != nil {
		return "", domain.Fail(domain.KindProviderError, providerName, "yelp api error: %s", out.Error.Description)
	}
	if len(out.Businesses) == 0 {
		log.Debug().Str("name", name).Str("city", city).Msg("no yelp match")
		return "", nil
	}

	labels := make([]string, 0, len(out.Businesses[0].Categories))
	for _, cat := range out.Businesses[0].Categories {
		switch {
		case cat.Title != "":
			labels = append(labels, cat.Title)
		case cat.Alias != "":
			labels = append(labels, titleCaser.String(cat.Alias))
		}
	}
	return strings.Join(labels, ", "), nil
}
