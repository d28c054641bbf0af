// Package places wraps the Google Places Web Service. It exposes two
// operations used by the ingestion pipeline: a place-details lookup (by
// place identifier, with a find-place-from-text fallback for free-text
// references) and a photo fetch against the Places media endpoint.
//
// Provider statuses are mapped onto the domain failure taxonomy so the
// pipeline never sees Google-specific status strings:
//
//	ZERO_RESULTS / NOT_FOUND        -> KindPlaceNotFound
//	OVER_QUERY_LIMIT / HTTP 429     -> KindRateLimited
//	anything else (incl. bad JSON)  -> KindProviderError
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const (
	defaultBaseURL = "https://maps.googleapis.com"
	providerName   = "google_places"

	// detailFields is the field mask requested from the Details endpoint.
	detailFields = "name,formatted_address,website,price_level,address_component,photos,url"

	// photoMaxWidth bounds the size of the fetched hero image.
	photoMaxWidth = 800

	// maxPhotoBytes caps the image download (Places photos are well under
	// this at maxwidth=800).
	maxPhotoBytes = 10 << 20
)

// Client calls the Google Places Web Service.
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

// detailsResponse mirrors the subset of the Details payload we consume.
type detailsResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Result       detailsResult `json:"result"`
}

type detailsResult struct {
	Name              string             `json:"name"`
	FormattedAddress  string             `json:"formatted_address"`
	Website           string             `json:"website"`
	URL               string             `json:"url"`
	PriceLevel        *int               `json:"price_level"`
	AddressComponents []addressComponent `json:"address_components"`
	Photos            []photo            `json:"photos"`
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type photo struct {
	PhotoReference string `json:"photo_reference"`
}

type findPlaceResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Candidates   []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
}

// FetchDetails looks up structured place attributes for ref. When ref
// carries a place identifier the Details endpoint is hit directly; a
// free-text reference goes through Find Place From Text first.
func (c *Client) FetchDetails(ctx context.Context, ref domain.PlaceRef) (domain.PlaceDetails, error) {
	id := ref.PlaceID
	if id == "" {
		found, err := c.findPlaceID(ctx, ref.Query)
		if err != nil {
			return domain.PlaceDetails{}, err
		}
		id = found
	}

	q := url.Values{}
	// ftid identifiers (hex pair form) use a dedicated parameter; everything
	// else is a regular place_id.
	if strings.Contains(id, "0x") && strings.Contains(id, ":") {
		q.Set("ftid", id)
	} else {
		q.Set("place_id", id)
	}
	q.Set("fields", detailFields)
	q.Set("key", c.apiKey)

	var out detailsResponse
	if err := c.getJSON(ctx, "/maps/api/place/details/json", q, &out); err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := statusError(out.Status, out.ErrorMessage); err != nil {
		return domain.PlaceDetails{}, err
	}
	if out.Result.Name == "" {
		return domain.PlaceDetails{}, domain.Fail(domain.KindPlaceNotFound, providerName, "details result carries no name")
	}

	d := domain.PlaceDetails{
		Name:       out.Result.Name,
		Address:    out.Result.FormattedAddress,
		Website:    out.Result.Website,
		MapsURL:    out.Result.URL,
		PriceLevel: out.Result.PriceLevel,
	}
	for _, comp := range out.Result.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality", "postal_town":
				if d.City == "" {
					d.City = comp.LongName
				}
			case "country":
				d.Country = comp.LongName
			}
		}
	}
	if len(out.Result.Photos) > 0 {
		d.PhotoRef = out.Result.Photos[0].PhotoReference
	}

	log.Debug().Str("name", d.Name).Str("city", d.City).Msg("fetched place details")
	return d, nil
}

// FetchPhoto downloads the primary photo bytes for a photo reference from
// the Places media endpoint.
func (c *Client) FetchPhoto(ctx context.Context, photoRef string) ([]byte, error) {
	if photoRef == "" {
		return nil, domain.Fail(domain.KindPlaceNotFound, providerName, "empty photo reference")
	}
	q := url.Values{}
	q.Set("maxwidth", fmt.Sprint(photoMaxWidth))
	q.Set("photoreference", photoRef)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/maps/api/place/photo?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.Wrap(domain.KindProviderError, providerName, err, "building photo request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, err, "fetching photo")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.Fail(domain.KindRateLimited, providerName, "photo endpoint rate limited")
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.Fail(domain.KindPlaceNotFound, providerName, "photo not found")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, domain.Fail(domain.KindProviderError, providerName, "photo endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		return nil, domain.Wrap(domain.KindProviderError, providerName, err, "reading photo body")
	}
	if len(data) == 0 {
		return nil, domain.Fail(domain.KindProviderError, providerName, "photo endpoint returned an empty body")
	}
	return data, nil
}

// findPlaceID resolves a free-text place reference to a place_id via the
// Find Place From Text endpoint, taking the provider's top candidate.
func (c *Client) findPlaceID(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.Fail(domain.KindPlaceNotFound, providerName, "empty place query")
	}
	q := url.Values{}
	q.Set("input", query)
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id")
	q.Set("key", c.apiKey)

	var out findPlaceResponse
	if err := c.getJSON(ctx, "/maps/api/place/findplacefromtext/json", q, &out); err != nil {
		return "", err
	}
	if err := statusError(out.Status, out.ErrorMessage); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || out.Candidates[0].PlaceID == "" {
		return "", domain.Fail(domain.KindPlaceNotFound, providerName, "no candidate for %q", query)
	}
	return out.Candidates[0].PlaceID, nil
}

// getJSON performs a GET against path with query q and decodes the JSON body
// into out, translating HTTP-level failures to domain failures.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return domain.Wrap(domain.KindProviderError, providerName, err, "building request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err, "calling places api")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.Fail(domain.KindRateLimited, providerName, "places api rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Fail(domain.KindProviderError, providerName, "places api returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Wrap(domain.KindProviderError, providerName, err, "decoding places response")
	}
	return nil
}

// statusError maps a Places API status string to a domain failure, or nil
// for OK.
func statusError(status, errorMessage string) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return domain.Fail(domain.KindPlaceNotFound, providerName, "no results")
	case "OVER_QUERY_LIMIT", "RESOURCE_EXHAUSTED":
		return domain.Fail(domain.KindRateLimited, providerName, "query limit exceeded")
	default:
		msg := errorMessage
		if msg == "" {
			msg = status
		}
		return domain.Fail(domain.KindProviderError, providerName, "places api error: %s", msg)
	}
}

// transportError classifies a client-side transport error, preferring
// KindTimeout when the context is already done.
func transportError(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return domain.Wrap(domain.KindTimeout, providerName, ctx.Err(), msg)
	}
	return domain.Wrap(domain.KindProviderError, providerName, err, msg)
}
