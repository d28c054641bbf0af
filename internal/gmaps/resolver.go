// Package gmaps normalizes Google Maps share links into canonical place
// references. Share links arrive either as short redirect forms
// (maps.app.goo.gl, goo.gl/maps) or as long-form google.com/maps URLs; the
// resolver expands the former by following redirects with a bounded depth,
// then extracts a place identifier (ftid / place_id) or a free-text query
// from the long form.
//
// The resolver is an isolated, independently testable unit: it owns URL
// validation and canonicalization and nothing else, so the ingestion
// pipeline never parses URLs itself.
package gmaps

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const (
	// maxRedirects caps redirect chains when expanding short links, so a
	// redirect loop cannot stall a request.
	maxRedirects = 5
	// maxURLLength rejects absurdly long submissions before any parsing.
	maxURLLength = 2000

	providerName = "url_resolver"
)

// shortHosts are the known Google short-link domains that require redirect
// expansion before a place can be extracted.
var shortHosts = map[string]bool{
	"maps.app.goo.gl": true,
	"goo.gl":          true,
}

// Resolver expands and canonicalizes Google Maps URLs.
type Resolver struct {
	client *http.Client
}

// New constructs a Resolver. The provided timeout bounds each HTTP hop of
// the redirect expansion.
func New(timeout time.Duration) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: timeout,
			// Redirects are followed manually so the chain depth can be
			// capped and each hop validated.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Resolve validates rawURL and returns a canonical place reference.
//
// It fails with KindInvalidURL when the string is not a parseable maps URL
// and KindResolutionFailed when redirect expansion errors (timeout, non-2xx
// terminal response, chain longer than maxRedirects).
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (domain.PlaceRef, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || len(rawURL) > maxURLLength {
		return domain.PlaceRef{}, domain.Fail(domain.KindInvalidURL, providerName, "url empty or exceeds maximum length")
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.PlaceRef{}, domain.Fail(domain.KindInvalidURL, providerName, "not a parseable http(s) url")
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case shortHosts[host]:
		expanded, err := r.expand(ctx, u)
		if err != nil {
			return domain.PlaceRef{}, err
		}
		u = expanded
	case isMapsHost(host) && strings.HasPrefix(u.Path, "/maps"):
		// already long form
	default:
		return domain.PlaceRef{}, domain.Fail(domain.KindInvalidURL, providerName, "url is not from a known google maps domain")
	}

	ref := extractPlaceRef(u)
	if ref.PlaceID == "" && ref.Query == "" {
		return domain.PlaceRef{}, domain.Fail(domain.KindInvalidURL, providerName, "expanded url carries no place identifier or query")
	}

	log.Debug().
		Str("place_id", ref.PlaceID).
		Str("query", ref.Query).
		Str("canonical_url", ref.CanonicalURL).
		Msg("resolved maps url")
	return ref, nil
}

// expand follows the redirect chain of a short link, hop by hop, until a
// non-redirect response or the depth cap.
func (r *Resolver) expand(ctx context.Context, u *url.URL) (*url.URL, error) {
	cur := u
	for hop := 0; hop < maxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cur.String(), nil)
		if err != nil {
			return nil, domain.Wrap(domain.KindResolutionFailed, providerName, err, "building redirect request")
		}
		resp, err := r.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, domain.Wrap(domain.KindTimeout, providerName, ctx.Err(), "redirect expansion cancelled")
			}
			return nil, domain.Wrap(domain.KindResolutionFailed, providerName, err, "following short link")
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			loc := resp.Header.Get("Location")
			if loc == "" {
				return nil, domain.Fail(domain.KindResolutionFailed, providerName, "redirect without location header")
			}
			next, err := cur.Parse(loc)
			if err != nil {
				return nil, domain.Wrap(domain.KindResolutionFailed, providerName, err, "parsing redirect location")
			}
			// Once expanded onto a maps host the chain is done; consent or
			// tracking hops past this point add nothing.
			if isMapsHost(strings.ToLower(next.Hostname())) && strings.HasPrefix(next.Path, "/maps") {
				return next, nil
			}
			cur = next
		default:
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if isMapsHost(strings.ToLower(cur.Hostname())) && strings.HasPrefix(cur.Path, "/maps") {
					return cur, nil
				}
				return nil, domain.Fail(domain.KindResolutionFailed, providerName, "short link did not lead to a maps url")
			}
			return nil, domain.Fail(domain.KindResolutionFailed, providerName, "unexpected status %d while expanding short link", resp.StatusCode)
		}
	}
	return nil, domain.Fail(domain.KindResolutionFailed, providerName, "redirect chain exceeded %d hops", maxRedirects)
}

// isMapsHost reports whether host serves long-form Google Maps URLs.
func isMapsHost(host string) bool {
	if host == "maps.google.com" {
		return true
	}
	return host == "google.com" || strings.HasSuffix(host, ".google.com")
}

// extractPlaceRef pulls a place identifier or query out of a long-form maps
// URL and builds the canonical dedup key. The canonical form keeps only the
// scheme, host, path, and the identifying query parameters; everything
// volatile (session state, UI hints) is dropped.
func extractPlaceRef(u *url.URL) domain.PlaceRef {
	q := u.Query()

	ref := domain.PlaceRef{}
	if v := q.Get("ftid"); v != "" {
		ref.PlaceID = v
	} else if v := q.Get("place_id"); v != "" {
		ref.PlaceID = v
	}
	if v := q.Get("q"); v != "" {
		ref.Query = v
	}
	if ref.Query == "" {
		ref.Query = placeNameFromPath(u.Path)
	}

	canonical := url.URL{Scheme: "https", Host: u.Hostname(), Path: u.Path}
	keep := url.Values{}
	for _, k := range []string{"ftid", "place_id", "q"} {
		if v := q.Get(k); v != "" {
			keep.Set(k, v)
		}
	}
	canonical.RawQuery = keep.Encode()
	ref.CanonicalURL = canonical.String()
	return ref
}

// placeNameFromPath extracts the human-readable place segment from paths of
// the form /maps/place/<name>/@lat,lng,....
func placeNameFromPath(path string) string {
	const marker = "/maps/place/"
	i := strings.Index(path, marker)
	if i < 0 {
		return ""
	}
	rest := path[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	if rest == "" || strings.HasPrefix(rest, "@") {
		return ""
	}
	if dec, err := url.PathUnescape(rest); err == nil {
		rest = dec
	}
	return strings.TrimSpace(strings.ReplaceAll(rest, "+", " "))
}
