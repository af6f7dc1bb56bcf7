package credit

import (
	"context"
	"errors"
)

var (
	// ErrInvalidReference rejects an empty idempotency key.
	ErrInvalidReference = errors.New("payment reference required")
	// ErrInvalidAmount rejects a non-positive credit count.
	ErrInvalidAmount = errors.New("credit count must be positive")
	// ErrNotFound means the subject email resolves to no user; no mutation.
	ErrNotFound = errors.New("no user for email")
	// ErrUnauthorized means the remote applier rejected our shared secret.
	ErrUnauthorized = errors.New("apply-credits secret rejected")
)

// Result reports the outcome of one credit application.
type Result struct {
	Reference        string `json:"reference"`
	CreditsApplied   int64  `json:"credits_applied"`
	NewBalance       int64  `json:"new_balance"`
	AlreadyProcessed bool   `json:"already_processed"`
}

// Applier applies a credit delta for a payment reference at most once.
// Replays for a reference that was already applied succeed with
// AlreadyProcessed set and cause no mutation, so callers may invoke it
// under at-least-once delivery without double-crediting.
type Applier interface {
	Apply(ctx context.Context, reference, email string, credits int64) (*Result, error)
}
