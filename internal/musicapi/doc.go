// Package musicapi implements a rate-limited, retrying client for the
// GD Studio music search service. The service exposes one GET endpoint
// whose "types" parameter selects among search, URL resolution, lyrics,
// and cover art operations.
package musicapi
