package reactive

import (
	"errors"
	"fmt"
)

// RuntimeError reports a tripped cascade guard.
//
// Two categories exist:
//   - Cycle: an effect wrote a signal it depends on, which would re-enter
//     the effect while it is still running.
//   - Quota: the total number of effect re-runs in one cascade exceeded the
//     configured budget (linear explosions rather than tight loops).
//
// Together they guarantee every write terminates.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EffectLabel names the effect at which the guard tripped.
	EffectLabel string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes cascade guard errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates an effect re-entered itself.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeQuotaExceeded indicates the cascade exceeded max effect runs.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.EffectLabel != "" {
		return fmt.Sprintf("%s: %s (effect=%s)", e.Code, e.Message, e.EffectLabel)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCycleError returns true if the error is a cycle detection error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCycleDetected
	}
	return false
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return false
}

func newCycleError(label string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeCycleDetected,
		Message:     "effect writes a signal it depends on",
		EffectLabel: label,
	}
}

func newQuotaError(label string, runs, maxRuns int) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeQuotaExceeded,
		Message:     fmt.Sprintf("cascade exceeded max effect runs (%d > %d)", runs, maxRuns),
		EffectLabel: label,
		Details: map[string]string{
			"runs":     fmt.Sprintf("%d", runs),
			"max_runs": fmt.Sprintf("%d", maxRuns),
		},
	}
}
