package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fpang/ai-portrait-studio/internal/gemini"
	"github.com/fpang/ai-portrait-studio/internal/studio"
)

// ErrorKind is the machine-readable failure category returned to clients.
// Kinds are stable API surface; messages are advisory and may change.
type ErrorKind string

const (
	// KindAuthFailure covers bad, missing, replayed, or expired signatures,
	// and a body timestamp that disagrees with the header.
	KindAuthFailure ErrorKind = "AUTH_FAILURE"

	// KindEntitlementFailure covers invalid invite codes.
	KindEntitlementFailure ErrorKind = "ENTITLEMENT_FAILURE"

	// KindValidationFailure covers malformed bodies, missing required
	// fields, and unknown actions.
	KindValidationFailure ErrorKind = "VALIDATION_FAILURE"

	// KindUpstreamUnavailable covers exhausted model candidate chains and a
	// service missing its required upstream configuration.
	KindUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"

	// KindGenerationFailure covers pipelines that never produced an image.
	KindGenerationFailure ErrorKind = "GENERATION_FAILURE"

	// KindParseFailure covers mandatory-JSON stages whose model output
	// could not be parsed.
	KindParseFailure ErrorKind = "PARSE_FAILURE"

	// KindProcessingError is the catch-all for unexpected failures.
	KindProcessingError ErrorKind = "PROCESSING_ERROR"
)

// HTTPStatus maps an error kind to its response status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindEntitlementFailure:
		return http.StatusForbidden
	case KindValidationFailure:
		return http.StatusBadRequest
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindParseFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// classifyError folds a pipeline error into the client-facing taxonomy.
// Sentinel checks come before the catch-all so wrapped errors keep their
// category across package boundaries.
func classifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, gemini.ErrNoAvailableModel):
		return KindUpstreamUnavailable
	case errors.Is(err, studio.ErrGenerationFailed):
		return KindGenerationFailure
	case errors.Is(err, studio.ErrInvalidModelJSON):
		return KindParseFailure
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindProcessingError
	}
	return KindProcessingError
}
