package services

import "context"

type contextKey string

const (
	itemIndexKey contextKey = "item_index"
	operationKey contextKey = "operation"
	runIDKey     contextKey = "run_id"
)

// WithItemIndex annotates context with a tracked item's index.
func WithItemIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, itemIndexKey, index)
}

// ItemIndexFromContext extracts the tracked item index if present.
func ItemIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(itemIndexKey)
	if idx, ok := v.(int); ok {
		return idx, true
	}
	return 0, false
}

// WithOperation annotates context with the operation name (match, download, ...).
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(operationKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the session run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the session run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
