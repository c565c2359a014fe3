package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks parameter failures raised before any network I/O.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks network or timeout failures eligible for retry.
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks a call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound marks a well-formed response without a usable result.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether an error should be retried with backoff.
// Validation failures, plain not-found results, and cancellation never
// retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
