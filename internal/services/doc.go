// Package services defines shared utilities consumed by the remote music
// client, the downloader, and the orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp item indexes, operation names, and run
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (validation vs transient vs exhaustion) uniform across
//     the remote operations.
package services
