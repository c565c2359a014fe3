// Package orchestrator drives batch matching and downloading over a
// session's tracked files, honoring per-item eligibility and
// cooperative cancellation.
package orchestrator
