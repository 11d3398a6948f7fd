// Package handlers defines the HTTP-layer error codes used across
// endpoints. Codes are lowercase snake_case; generic ones mirror common
// HTTP status semantics, and webhook-specific ones let the payment
// processor's dashboard distinguish signature problems from domain
// rejections.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Webhook-specific:
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeUnprocessable    = "unprocessable_event"
)
