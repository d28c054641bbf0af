// Package domain defines the core data types exchanged between the URL
// resolver, the provider clients, and the ingestion pipeline: place
// references, provider-shaped place details, and the canonical restaurant
// record persisted to the external store.
package domain

import "strings"

// PriceRange is the enumerated price band of a restaurant, rendered in the
// usual dollar-sign notation. The zero value means the price level is unknown.
type PriceRange string

// Known price bands. Google reports price_level as an integer in [0,4];
// level 0 ("free") collapses into the cheapest band.
const (
	PriceUnknown PriceRange = ""
	PriceCheap   PriceRange = "$"
	PriceMid     PriceRange = "$$"
	PriceHigh    PriceRange = "$$$"
	PriceTop     PriceRange = "$$$$"
)

// PriceRangeFromLevel converts a Google Places price_level integer to a
// PriceRange. A nil level means the provider omitted the field.
func PriceRangeFromLevel(level *int) PriceRange {
	if level == nil {
		return PriceUnknown
	}
	n := *level
	switch {
	case n <= 1:
		return PriceCheap
	case n == 2:
		return PriceMid
	case n == 3:
		return PriceHigh
	default:
		return PriceTop
	}
}

// PlaceRef identifies a place well enough to query the place-details
// provider. Either PlaceID (preferred) or Query is set; CanonicalURL is the
// redirect-resolved long-form maps URL used as the dedup key.
type PlaceRef struct {
	// PlaceID is a Google place identifier (place_id or ftid), when the
	// canonical URL carried one.
	PlaceID string
	// Query is a free-text fallback (restaurant name or q= parameter) used
	// with the Find Place endpoint when no PlaceID could be extracted.
	Query string
	// CanonicalURL is the long-form maps URL after redirect expansion and
	// sanitization. It uniquely identifies the place across ingestions.
	CanonicalURL string
}

// PlaceDetails is the provider-shaped response of a place lookup. It lives
// only for the duration of one pipeline run before being mapped into a
// RestaurantRecord.
type PlaceDetails struct {
	Name       string
	Address    string
	City       string
	Country    string
	Website    string
	MapsURL    string // provider's own canonical url field, when present
	PriceLevel *int   // nil when the provider omitted price_level
	// PhotoRef references the primary photo in the provider's media
	// endpoint; empty when the place has no photos.
	PhotoRef string
}

// RestaurantRecord is the canonical unit persisted to the external store.
// GoogleMapsURL is the natural key: two ingestions of the same canonical URL
// must converge on one stored record.
type RestaurantRecord struct {
	Name          string
	City          string
	Country       string
	CuisineType   string // empty when the directory lookup found nothing
	GoogleMapsURL string
	PriceRange    PriceRange
	Website       string
	ImageURL      string // empty when the image publish step failed or was skipped
}

// Valid reports whether the record satisfies the store's minimum schema:
// a non-blank name and a dedup key.
func (r RestaurantRecord) Valid() bool {
	return strings.TrimSpace(r.Name) != "" && strings.TrimSpace(r.GoogleMapsURL) != ""
}

// IngestionResult summarizes a completed pipeline run.
type IngestionResult struct {
	// RecordID is the store's identifier for the created or updated record.
	RecordID string
	// Created is true when a new record was inserted, false on update.
	Created bool
	// Record is the record as written to the store.
	Record RestaurantRecord
}
