// Package common defines shared constants and sentinel errors used across
// lotbook components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Remote-layer errors. ErrUnavailable covers timeouts and unreachable
	// hosts; it marks a mutation as retryable on the next sync pass.
	ErrUnavailable  = errors.New("remote unavailable")
	ErrConflict     = errors.New("remote rejected write")
	ErrUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Capture-surface errors. ErrCanceled is the user-cancellation signal
	// and must be treated as a non-error no-op by callers.
	ErrCanceled         = errors.New("canceled by user")
	ErrPermissionDenied = errors.New("permission denied")

	// Sync-orchestrator errors.
	ErrSyncTimeout    = errors.New("sync pass timed out")
	ErrSyncInProgress = errors.New("sync already in progress")
)
