// Package services – IngestionService
//
// This file implements the ingestion pipeline: a staged, request-scoped
// orchestration over four provider clients followed by an idempotent upsert
// into the record store.
//
// Stage order (sequential where data-dependent, parallel where not):
//
//	resolve URL -> fetch place details -> {cuisine lookup || image publish}
//	           -> map record -> find existing by canonical URL -> upsert
//
// The place lookup is required and retried with bounded exponential backoff
// on transient failures. The two enrichment branches run concurrently and
// are tolerated individually: a missing cuisine or a failed image publish
// degrades the record instead of aborting the run. Store failures are fatal,
// since upsert correctness depends on knowing whether a record exists.
//
// Re-submitting the same canonical URL any number of times converges to one
// stored record, refreshed with the latest fetched attributes.
package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/BattermanZ/Gastropath/internal/config"
	"github.com/BattermanZ/Gastropath/internal/domain"
	"github.com/BattermanZ/Gastropath/internal/repo"
)

// URLResolver normalizes a raw maps URL into a canonical place reference.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (domain.PlaceRef, error)
}

// PlaceLookup fetches structured place attributes and photo bytes.
type PlaceLookup interface {
	FetchDetails(ctx context.Context, ref domain.PlaceRef) (domain.PlaceDetails, error)
	FetchPhoto(ctx context.Context, photoRef string) ([]byte, error)
}

// CuisineResolver returns a best-effort cuisine label; "" with a nil error
// means the directory had no match.
type CuisineResolver interface {
	FetchCuisine(ctx context.Context, name, city string) (string, error)
}

// ImagePublisher uploads image bytes and returns a stable public URL.
type ImagePublisher interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// RecordStore queries and writes restaurant records keyed by canonical URL.
type RecordStore interface {
	// FindByURL returns the existing record id for the canonical URL, or ""
	// when no record exists.
	FindByURL(ctx context.Context, canonicalURL string) (string, error)
	// Upsert creates a record when existingID is "", otherwise updates the
	// existing record in place. Returns the record id.
	Upsert(ctx context.Context, record domain.RestaurantRecord, existingID string) (string, error)
}

// IngestionService orchestrates one pipeline run per inbound request. Runs
// for different requests are fully independent; the external store is the
// only shared resource.
type IngestionService struct {
	Resolver URLResolver
	Places   PlaceLookup
	Cuisine  CuisineResolver
	Images   ImagePublisher
	Store    RecordStore

	// DB receives journal entries; nil disables journaling.
	DB *gorm.DB

	// CallTimeout bounds each outbound provider call.
	CallTimeout time.Duration
	// RequestBudget bounds the whole run; 0 disables the budget (the
	// caller's context still applies).
	RequestBudget time.Duration
	// LookupAttempts caps place-lookup tries (first call included).
	LookupAttempts int
	// RetryBackoff is the base backoff, doubled after each failed attempt.
	RetryBackoff time.Duration
}

// NewIngestionService wires an IngestionService from its collaborators and
// the pipeline configuration.
func NewIngestionService(r URLResolver, p PlaceLookup, c CuisineResolver, i ImagePublisher, s RecordStore, db *gorm.DB, cfg config.PipelineConfig) *IngestionService {
	return &IngestionService{
		Resolver:       r,
		Places:         p,
		Cuisine:        c,
		Images:         i,
		Store:          s,
		DB:             db,
		CallTimeout:    cfg.CallTimeout,
		RequestBudget:  cfg.RequestBudget,
		LookupAttempts: cfg.LookupAttempts,
		RetryBackoff:   cfg.RetryBackoff,
	}
}

// Ingest runs the full pipeline for one submitted URL. On success the
// returned result identifies the created or updated record; on failure the
// error is a *domain.Failure whose Kind drives the HTTP mapping. No partial
// record is ever written: the store is touched only in the final stage.
func (s *IngestionService) Ingest(ctx context.Context, rawURL string) (*domain.IngestionResult, error) {
	start := time.Now()
	if s.RequestBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestBudget)
		defer cancel()
	}

	res, err := s.run(ctx, rawURL, start)
	s.finish(ctx, rawURL, res, err, time.Since(start))
	return res, err
}

func (s *IngestionService) run(ctx context.Context, rawURL string, start time.Time) (*domain.IngestionResult, error) {
	lg := log.With().Str("url", rawURL).Logger()

	// Stage 1: resolve the submitted URL.
	ref, err := s.resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// Stage 2: required place lookup, with bounded retry on transient
	// provider failures.
	details, err := s.lookupWithRetry(ctx, ref, lg)
	if err != nil {
		return nil, err
	}

	// Stage 3: independent enrichment branches, joined before mapping.
	cuisine, imageURL := s.enrich(ctx, details, lg)

	// A budget expiry during enrichment must not reach the store.
	if ctx.Err() != nil {
		return nil, domain.Wrap(domain.KindTimeout, "", ctx.Err(), "request budget exhausted before store access")
	}

	// Stage 4: map provider responses into the canonical record.
	record := mapRecord(ref, details, cuisine, imageURL)

	// Stage 5: existence check by canonical URL. A transport failure here
	// is fatal; without it the upsert could duplicate.
	existingID, err := s.findExisting(ctx, record.GoogleMapsURL)
	if err != nil {
		return nil, err
	}

	// Stage 6: create or update.
	recordID, err := s.upsert(ctx, record, existingID)
	if err != nil {
		return nil, err
	}

	lg.Info().
		Str("record_id", recordID).
		Bool("created", existingID == "").
		Dur("elapsed", time.Since(start)).
		Msg("ingestion completed")

	return &domain.IngestionResult{
		RecordID: recordID,
		Created:  existingID == "",
		Record:   record,
	}, nil
}

// resolve runs the URL resolution stage under the per-call timeout.
func (s *IngestionService) resolve(ctx context.Context, rawURL string) (domain.PlaceRef, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	ref, err := s.Resolver.Resolve(cctx, rawURL)
	observeProviderCall("url_resolver", err)
	return ref, err
}

// lookupWithRetry fetches place details, retrying transient failures with
// exponential backoff up to LookupAttempts total calls. Non-transient
// failures (place not found, invalid input) return immediately.
func (s *IngestionService) lookupWithRetry(ctx context.Context, ref domain.PlaceRef, lg zerolog.Logger) (domain.PlaceDetails, error) {
	attempts := s.LookupAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := s.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		cctx, cancel := s.callCtx(ctx)
		details, err := s.Places.FetchDetails(cctx, ref)
		cancel()
		observeProviderCall("google_places", err)
		if err == nil {
			return details, nil
		}
		// The client reports the per-call deadline as a timeout, but with
		// budget remaining it is a hung attempt, not the request budget:
		// reclassify so the retry policy applies.
		if domain.IsKind(err, domain.KindTimeout) && ctx.Err() == nil {
			err = domain.Wrap(domain.KindProviderError, "", err, "place lookup attempt timed out")
		}
		lastErr = err

		if !domain.Transient(err) || attempt == attempts {
			break
		}
		lg.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("place lookup failed, retrying")

		select {
		case <-ctx.Done():
			return domain.PlaceDetails{}, domain.Wrap(domain.KindTimeout, "", ctx.Err(), "request budget exhausted during retry")
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if ctx.Err() != nil && domain.KindOf(lastErr) != domain.KindPlaceNotFound {
		return domain.PlaceDetails{}, domain.Wrap(domain.KindTimeout, "", ctx.Err(), "place lookup timed out")
	}
	return domain.PlaceDetails{}, lastErr
}

// enrich runs the cuisine lookup and the image publish concurrently and
// joins both. Each branch failure is captured and tolerated independently;
// the branches do not cancel one another.
func (s *IngestionService) enrich(ctx context.Context, details domain.PlaceDetails, lg zerolog.Logger) (cuisine, imageURL string) {
	var wg sync.WaitGroup
	var cuisineErr, imageErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		cctx, cancel := s.callCtx(ctx)
		defer cancel()
		cuisine, cuisineErr = s.Cuisine.FetchCuisine(cctx, details.Name, details.City)
		observeProviderCall("yelp", cuisineErr)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if details.PhotoRef == "" {
			return
		}
		imageURL, imageErr = s.publishImage(ctx, details.PhotoRef)
	}()

	wg.Wait()

	if cuisineErr != nil {
		cuisine = ""
		enrichmentDegraded.WithLabelValues("cuisine").Inc()
		lg.Warn().Err(cuisineErr).Msg("cuisine lookup degraded")
	}
	if imageErr != nil {
		imageURL = ""
		enrichmentDegraded.WithLabelValues("image").Inc()
		lg.Warn().Err(imageErr).Msg("image publish degraded")
	}
	return cuisine, imageURL
}

// publishImage fetches photo bytes from the place provider and uploads them
// to the media host. Either step failing degrades to ImagePublishFailed.
func (s *IngestionService) publishImage(ctx context.Context, photoRef string) (string, error) {
	fctx, cancel := s.callCtx(ctx)
	data, err := s.Places.FetchPhoto(fctx, photoRef)
	cancel()
	observeProviderCall("google_places", err)
	if err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, "", err, "fetching photo bytes")
	}

	uctx, cancel := s.callCtx(ctx)
	defer cancel()
	url, err := s.Images.Upload(uctx, data)
	observeProviderCall("cloudinary", err)
	if err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, "", err, "uploading image")
	}
	return url, nil
}

// findExisting queries the store for a record with the canonical URL.
func (s *IngestionService) findExisting(ctx context.Context, canonicalURL string) (string, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	id, err := s.Store.FindByURL(cctx, canonicalURL)
	observeProviderCall("notion", err)
	if err != nil {
		if ctx.Err() != nil || domain.IsKind(err, domain.KindTimeout) {
			return "", domain.Wrap(domain.KindTimeout, "", err, "store lookup timed out")
		}
		return "", domain.Wrap(domain.KindStoreUnavailable, "", err, "querying record store")
	}
	return id, nil
}

// upsert performs the final create-or-update. Schema mismatches pass through
// unchanged so the caller can distinguish configuration problems from
// transient store failures.
func (s *IngestionService) upsert(ctx context.Context, record domain.RestaurantRecord, existingID string) (string, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()

	id, err := s.Store.Upsert(cctx, record, existingID)
	observeProviderCall("notion", err)
	if err != nil {
		if domain.IsKind(err, domain.KindSchemaMismatch) {
			return "", err
		}
		if ctx.Err() != nil || domain.IsKind(err, domain.KindTimeout) {
			return "", domain.Wrap(domain.KindTimeout, "", err, "store write timed out")
		}
		return "", domain.Wrap(domain.KindStoreWriteFailed, "", err, "writing record")
	}
	return id, nil
}

// mapRecord folds provider responses into the canonical restaurant record.
// The provider's own canonical maps URL is preferred as the dedup key when
// present; the resolver's canonical form is the fallback.
func mapRecord(ref domain.PlaceRef, details domain.PlaceDetails, cuisine, imageURL string) domain.RestaurantRecord {
	mapsURL := details.MapsURL
	if mapsURL == "" {
		mapsURL = ref.CanonicalURL
	}
	return domain.RestaurantRecord{
		Name:          strings.TrimSpace(details.Name),
		City:          details.City,
		Country:       details.Country,
		CuisineType:   cuisine,
		GoogleMapsURL: mapsURL,
		PriceRange:    domain.PriceRangeFromLevel(details.PriceLevel),
		Website:       details.Website,
		ImageURL:      imageURL,
	}
}

// callCtx derives a per-call context from ctx.
func (s *IngestionService) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.CallTimeout)
}

// finish records metrics and the journal entry for a completed run. Journal
// writes are best-effort: a failure is logged, never surfaced.
func (s *IngestionService) finish(ctx context.Context, rawURL string, res *domain.IngestionResult, err error, elapsed time.Duration) {
	outcome := domain.OutcomeCompleted
	entry := domain.IngestionEntry{
		SubmittedURL: rawURL,
		DurationMS:   elapsed.Milliseconds(),
	}
	if err != nil {
		kind := domain.KindOf(err)
		entry.ErrorCode = string(kind)
		switch kind {
		case domain.KindInvalidURL, domain.KindResolutionFailed, domain.KindPlaceNotFound:
			outcome = domain.OutcomeRejected
		default:
			outcome = domain.OutcomeFailed
		}
	} else if res != nil {
		entry.CanonicalURL = res.Record.GoogleMapsURL
		entry.RecordID = res.RecordID
		entry.Name = res.Record.Name
	}
	entry.Outcome = outcome

	ingestionsTotal.WithLabelValues(outcome).Inc()
	ingestionDuration.Observe(elapsed.Seconds())

	if s.DB == nil {
		return
	}
	// The run's context may already be past its deadline; journal with a
	// detached, briefly bounded one.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if jerr := repo.RecordIngestion(jctx, s.DB, &entry); jerr != nil {
		log.Warn().Err(jerr).Msg("journal write failed")
	}
}
