// Package domain – failure taxonomy
//
// Every provider client and the pipeline itself report errors as a *Failure
// carrying one of a small closed set of kinds. The orchestrator and the HTTP
// layer branch on Kind alone, so no package outside a client ever depends on
// a provider's native error types.
package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies a pipeline or provider failure.
type FailureKind string

// The closed set of failure kinds.
const (
	// KindInvalidURL: the submitted string is not a parseable maps URL.
	KindInvalidURL FailureKind = "invalid_url"
	// KindResolutionFailed: following the short-link redirect chain failed.
	KindResolutionFailed FailureKind = "resolution_failed"
	// KindPlaceNotFound: the place-details provider returned zero results.
	KindPlaceNotFound FailureKind = "place_not_found"
	// KindRateLimited: a provider rejected the call for quota reasons.
	KindRateLimited FailureKind = "rate_limited"
	// KindProviderError: any other upstream failure (transport, auth,
	// malformed response).
	KindProviderError FailureKind = "provider_error"
	// KindImagePublishFailed: fetching or uploading the hero image failed.
	// Non-fatal; the record is upserted without an image.
	KindImagePublishFailed FailureKind = "image_publish_failed"
	// KindSchemaMismatch: the target database's property set does not match
	// the expected restaurant schema.
	KindSchemaMismatch FailureKind = "schema_mismatch"
	// KindStoreUnavailable: the existence query against the store failed.
	KindStoreUnavailable FailureKind = "store_unavailable"
	// KindStoreWriteFailed: the final upsert against the store failed.
	KindStoreWriteFailed FailureKind = "store_write_failed"
	// KindTimeout: the request budget elapsed before the pipeline finished.
	KindTimeout FailureKind = "timeout"
)

// Failure is the error type shared by all clients and the pipeline.
type Failure struct {
	Kind     FailureKind
	Provider string // "google_places", "yelp", "cloudinary", "notion", or ""
	Message  string
	Err      error // wrapped cause, may be nil
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := f.Message
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", f.Provider, f.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", f.Kind, msg)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (f *Failure) Unwrap() error { return f.Err }

// Fail builds a Failure without a wrapped cause.
func Fail(kind FailureKind, provider, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Failure around an underlying error.
func Wrap(kind FailureKind, provider string, err error, msg string) *Failure {
	return &Failure{Kind: kind, Provider: provider, Message: msg, Err: err}
}

// KindOf extracts the FailureKind from err. Errors that are not a *Failure
// (including nil) report KindProviderError for non-nil values and "" for nil,
// so callers can switch on the result without a prior type assertion.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindProviderError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind FailureKind) bool { return KindOf(err) == kind }

// Transient reports whether err is worth retrying: provider rate limits and
// generic upstream errors are; not-found and validation outcomes are not.
func Transient(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindProviderError:
		return true
	default:
		return false
	}
}
