// Package handlers – HTTP error codes and the failure-kind mapping.
//
// The pipeline reports failures as domain.Failure values with a closed set
// of kinds; this file owns the translation of those kinds into HTTP status
// codes and stable response codes. Codes are lowercase snake_case and are
// the contract clients branch on.
package handlers

import (
	"net/http"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeListFailed       = "list_failed"
)

// statusForKind maps a pipeline failure kind to an HTTP status:
//
//	400 invalid input / unresolvable / unknown place
//	429 upstream quota exhausted
//	502 upstream provider failure
//	504 request budget exhausted
//	500 record store failures and schema mismatches
func statusForKind(kind domain.FailureKind) int {
	switch kind {
	case domain.KindInvalidURL, domain.KindResolutionFailed, domain.KindPlaceNotFound:
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindProviderError, domain.KindImagePublishFailed:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindSchemaMismatch, domain.KindStoreUnavailable, domain.KindStoreWriteFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// messageForKind returns the caller-facing message for a failure kind.
// Provider-internal detail stays in the logs.
func messageForKind(kind domain.FailureKind) string {
	switch kind {
	case domain.KindInvalidURL:
		return "the submitted url is not a valid google maps link"
	case domain.KindResolutionFailed:
		return "the short link could not be expanded"
	case domain.KindPlaceNotFound:
		return "no place matches the submitted url"
	case domain.KindRateLimited:
		return "an upstream provider is rate limiting requests, try again later"
	case domain.KindTimeout:
		return "the request timed out before completing"
	case domain.KindSchemaMismatch:
		return "the target database schema does not match the expected layout"
	case domain.KindStoreUnavailable, domain.KindStoreWriteFailed:
		return "the record store is unavailable"
	default:
		return "an upstream provider failed"
	}
}
