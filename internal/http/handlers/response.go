// Package handlers provides the HTTP handler implementations for the
// webhook API.
//
// This file defines the standard response utilities used across endpoints:
// a structured error envelope, consistent JSON serialization, and helpers
// for the common success/failure patterns. All error responses carry a
// stable machine-readable `code` plus the request correlation id, so server
// logs and client reports line up.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtside/booking-fulfillment/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// RequestID correlates server logs and client errors.
	RequestID string `json:"request_id,omitempty"`
	// Code is a stable, machine-readable string (see errors.go constants).
	Code string `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }
