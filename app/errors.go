// Package app implements the quota-governed, cache-aware analysis gateway.
package app

import (
	"errors"
	"fmt"

	"github.com/gabbezeira/handtrap-api/app/models"
)

var (
	// ErrUnauthenticated is returned when an operation requires a verified
	// identity and none was supplied.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrNotFound is returned for a deck cache miss when no refresh was
	// requested. A plain miss never triggers a model call.
	ErrNotFound = errors.New("analysis not found")

	// ErrUpstreamFailure means both the primary and backup model calls
	// failed or timed out.
	ErrUpstreamFailure = errors.New("model provider unavailable")

	// ErrMalformedResponse means the provider answered but its output could
	// not be parsed into the expected structure. This is a contract problem,
	// not an availability problem, and is never retried against the backup.
	ErrMalformedResponse = errors.New("model response unparseable")
)

// LimitReachedError reports an exhausted daily quota, carrying the
// tier-specific limit so handlers can surface it to the user.
type LimitReachedError struct {
	Operation models.Operation
	Plan      models.Plan
	Limit     int
}

func (e LimitReachedError) Error() string {
	return fmt.Sprintf("daily %s limit reached (%d/day on %s plan)", e.Operation, e.Limit, e.Plan)
}
