// Package downloader streams replacement audio to disk, falling back
// through quality tiers until one resolves, and writes optional lyrics
// and cover art sidecars.
package downloader
