// Package library scans directories for upgradeable audio files and
// prepares filenames for use as search queries.
package library
