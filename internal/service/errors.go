// Package service provides application-level services for managing cards,
// sources, and tags. Services orchestrate stores, the scheduler, and the
// background task runner; expected failures surface as sentinel errors the
// API layer maps to HTTP status codes.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); unexpected errors are wrapped in
// service-specific error types instead.
var (
	// ErrCardNotFound indicates the requested card does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrCardNotFound = errors.New("card not found")

	// ErrSourceNotFound indicates the requested source does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrSourceNotFound = errors.New("source not found")

	// ErrTagNotFound indicates the requested tag does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTagNotFound = errors.New("tag not found")

	// ErrSourceExists indicates a source with the same external ID has
	// already been imported. API layer should map this to HTTP 409 Conflict.
	ErrSourceExists = errors.New("source with this external ID already exists")

	// ErrGenerationDisabled indicates card generation was requested but no
	// generator is configured. API layer should map this to HTTP 503.
	ErrGenerationDisabled = errors.New("card generation is not configured")
)
