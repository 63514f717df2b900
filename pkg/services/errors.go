package services

import "errors"

// Error kinds returned by the service layer. The API boundary maps these
// to transport-level status codes; the services themselves never retry.
var (
	// ErrInvalidReference marks a video reference that cannot be parsed
	// or resolved.
	ErrInvalidReference = errors.New("invalid video reference")

	// ErrForbiddenHost marks a relay target whose host is not on the
	// allow-list. This is a security boundary, never silently bypassed.
	ErrForbiddenHost = errors.New("host not allowed")

	// ErrUpstreamFetch marks a network, timeout, or non-success status
	// failure fetching a manifest or resource from the origin. Retryable
	// by the caller.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrSegmentFetch marks a reconstruction that could not locate or
	// fetch the requested sequence number.
	ErrSegmentFetch = errors.New("segment fetch failed")

	// ErrVariantNotFound marks a variant identifier that no longer exists
	// after re-extraction and could not be substituted.
	ErrVariantNotFound = errors.New("variant not found")
)
