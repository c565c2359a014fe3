// Package ratelimit provides a sliding-window request limiter shared by all
// remote API calls. Admission and timestamp recording happen under one lock so
// concurrent callers cannot both claim the last free slot.
package ratelimit
