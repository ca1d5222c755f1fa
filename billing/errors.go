/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error kinds in one place. The propagation policy is part of the
  contract: configuration and data-fetch errors bubble up and abort the
  whole computation, while data-quality issues inside individual entitlement
  records are absorbed locally (a malformed record contributes nothing).

ERROR CATEGORIES:
  1. Configuration errors - missing/ambiguous pricing configuration (fatal)
  2. Feed errors          - underlying storage failures (fatal, propagated)
  3. Not-found errors     - unknown household/person lookups
  4. Input errors         - invalid month in a request

A caller must always be able to distinguish "no billable days this month"
(a valid zero) from "computation failed" (one of these errors).

SEE ALSO:
  - feeds.go: wraps storage failures in FeedError
  - aggregate.go: wraps per-person failures in ComputeError
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoPricingConfig is returned when no active pricing configuration
	// applicable to the 1-5 days/week range exists. Fatal: the computation
	// aborts entirely rather than rendering zero totals as if valid.
	ErrNoPricingConfig = errors.New("no active pricing configuration")

	// ErrInvalidMonth is returned for a month outside 1-12.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrHouseholdNotFound is returned when the requested household does
	// not exist in the roster.
	ErrHouseholdNotFound = errors.New("household not found")

	// ErrFeedFailed wraps underlying storage failures.
	ErrFeedFailed = errors.New("feed fetch failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FeedError reports which input collection failed to load.
type FeedError struct {
	Collection string // e.g. "enrollments", "holidays"
	Err        error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Collection, e.Err)
}

func (e *FeedError) Unwrap() error { return ErrFeedFailed }

// ComputeError reports which person's computation failed. Aggregation never
// silently drops a failed person: one ComputeError fails the whole
// household/institution result.
type ComputeError struct {
	PersonID PersonID
	Err      error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("compute fees for %s: %v", e.PersonID, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError reports whether the error is a blocking configuration
// problem the operator has to fix.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoPricingConfig)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMonth) || errors.Is(err, ErrHouseholdNotFound)
}

// IsNotFound reports whether the error indicates a missing roster entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrHouseholdNotFound)
}
