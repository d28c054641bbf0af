// Package notion implements the restaurant record store on top of the
// Notion API. A Notion database is the only durable home of ingested
// records; this package supports looking a record up by its canonical
// Google Maps URL (the dedup key) and creating or updating a page.
//
// Before the first write the target database's property set is checked
// against the expected schema, so a misconfigured database surfaces as
// KindSchemaMismatch instead of a cryptic write rejection.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
	providerName   = "notion"

	// pageIcon decorates newly created restaurant pages.
	pageIcon = "🍽️"
)

// expectedSchema maps required database property names to their Notion
// property types.
var expectedSchema = map[string]string{
	"Name":         "title",
	"City":         "rich_text",
	"Country":      "rich_text",
	"Cuisine Type": "rich_text",
	"Google Maps":  "url",
	"Price range":  "select",
	"Website":      "url",
}

// Store reads and writes restaurant records in a Notion database.
type Store struct {
	baseURL    string
	apiKey     string
	databaseID string
	http       *http.Client

	mu            sync.Mutex
	schemaChecked bool
}

// Option customizes a Store.
type Option func(*Store)

// WithBaseURL overrides the provider endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(s *Store) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(s *Store) { s.http = h }
}

// New constructs a Store bound to one database.
func New(apiKey, databaseID string, timeout time.Duration, opts ...Option) *Store {
	s := &Store{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		databaseID: databaseID,
		http:       &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FindByURL returns the page id of the record whose Google Maps property
// equals canonicalURL, or "" when no such record exists. The canonical URL
// is the sole dedup key; no fuzzy name matching is attempted.
func (s *Store) FindByURL(ctx context.Context, canonicalURL string) (string, error) {
	query := map[string]any{
		"filter": map[string]any{
			"property": "Google Maps",
			"url":      map[string]any{"equals": canonicalURL},
		},
		"page_size": 1,
	}

	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	path := fmt.Sprintf("/v1/databases/%s/query", s.databaseID)
	if err := s.call(ctx, http.MethodPost, path, query, &out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	return out.Results[0].ID, nil
}

// Upsert writes record to the database. With an empty existingID a new page
// is created (with a parent, icon, and cover); otherwise the existing page's
// properties are patched in place, leaving unrelated properties untouched.
// It returns the page id of the written record.
func (s *Store) Upsert(ctx context.Context, record domain.RestaurantRecord, existingID string) (string, error) {
	if !record.Valid() {
		return "", domain.Fail(domain.KindSchemaMismatch, providerName, "record missing name or dedup key")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return "", err
	}

	body := map[string]any{"properties": properties(record)}
	if record.ImageURL != "" {
		body["cover"] = map[string]any{
			"type":     "external",
			"external": map[string]any{"url": record.ImageURL},
		}
	}

	method := http.MethodPatch
	path := "/v1/pages/" + existingID
	if existingID == "" {
		method = http.MethodPost
		path = "/v1/pages"
		body["parent"] = map[string]any{"database_id": s.databaseID}
		body["icon"] = map[string]any{"type": "emoji", "emoji": pageIcon}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := s.call(ctx, method, path, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.Fail(domain.KindProviderError, providerName, "write response carries no page id")
	}

	log.Info().
		Str("page_id", out.ID).
		Str("name", record.Name).
		Bool("created", existingID == "").
		Msg("record upserted")
	return out.ID, nil
}

// ensureSchema validates the database property set once per Store lifetime.
// Only a successful check is cached; failures re-check on the next write.
func (s *Store) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	checked := s.schemaChecked
	s.mu.Unlock()
	if checked {
		return nil
	}

	var out struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := s.call(ctx, http.MethodGet, "/v1/databases/"+s.databaseID, nil, &out); err != nil {
		return err
	}

	for name, wantType := range expectedSchema {
		prop, ok := out.Properties[name]
		if !ok {
			return domain.Fail(domain.KindSchemaMismatch, providerName, "database missing property %q", name)
		}
		if prop.Type != wantType {
			return domain.Fail(domain.KindSchemaMismatch, providerName,
				"property %q has type %q, want %q", name, prop.Type, wantType)
		}
	}

	s.mu.Lock()
	s.schemaChecked = true
	s.mu.Unlock()
	return nil
}

// properties builds the Notion property payload for a record. Optional URL
// properties are sent as explicit nulls when empty (Notion rejects "").
func properties(r domain.RestaurantRecord) map[string]any {
	props := map[string]any{
		"Name":         map[string]any{"title": []any{textContent(r.Name)}},
		"City":         map[string]any{"rich_text": []any{textContent(r.City)}},
		"Country":      map[string]any{"rich_text": []any{textContent(r.Country)}},
		"Cuisine Type": map[string]any{"rich_text": []any{textContent(r.CuisineType)}},
		"Google Maps":  map[string]any{"url": r.GoogleMapsURL},
		"Website":      map[string]any{"url": nullableURL(r.Website)},
	}
	if r.PriceRange != domain.PriceUnknown {
		props["Price range"] = map[string]any{"select": map[string]any{"name": string(r.PriceRange)}}
	}
	return props
}

func textContent(s string) map[string]any {
	return map[string]any{"text": map[string]any{"content": s}}
}

func nullableURL(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// call performs one Notion API request. Transport and auth failures map to
// KindProviderError; rate limiting maps to KindRateLimited. The caller
// (pipeline) decides whether a failure is StoreUnavailable or
// StoreWriteFailed based on the stage it occurred in.
func (s *Store) call(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return domain.Wrap(domain.KindProviderError, providerName, err, "encoding request body")
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rd)
	if err != nil {
		return domain.Wrap(domain.KindProviderError, providerName, err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Wrap(domain.KindTimeout, providerName, ctx.Err(), "notion call cancelled")
		}
		return domain.Wrap(domain.KindProviderError, providerName, err, "calling notion api")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.Fail(domain.KindRateLimited, providerName, "notion api rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.Fail(domain.KindProviderError, providerName,
			"notion api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.Wrap(domain.KindProviderError, providerName, err, "decoding notion response")
		}
	}
	return nil
}
