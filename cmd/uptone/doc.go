// Command uptone scans a directory of lossy audio files, matches each
// against a remote music search service, and downloads the best
// available replacement.
package main
