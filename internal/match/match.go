package match

import (
	"regexp"
	"strings"

	"uptone/internal/musicapi"
)

var artistSplitPattern = regexp.MustCompile(`[-_~]+`)

// Ratio is the classic similarity ratio between two strings: twice the
// length of their longest common subsequence divided by the sum of their
// lengths. It ranges over [0,1]; two empty strings are identical.
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 2 * float64(subsequenceLength(ra, rb)) / float64(len(ra)+len(rb))
}

// subsequenceLength computes the longest common subsequence length with
// a rolling single-row table.
func subsequenceLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		previous := 0
		for j := 1; j <= len(b); j++ {
			current := row[j]
			if a[i-1] == b[j-1] {
				row[j] = previous + 1
			} else if row[j-1] > row[j] {
				row[j] = row[j-1]
			}
			previous = current
		}
	}
	return row[len(b)]
}

// SplitArtist separates a cleaned "Artist - Title" style query into its
// artist and title parts. When no separator is present the whole query
// is the title and the artist is empty.
func SplitArtist(query string) (artist, title string) {
	parts := artistSplitPattern.Split(query, 2)
	if len(parts) < 2 {
		return "", strings.TrimSpace(query)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// Score rates a candidate against a cleaned query in [0,1]. Comparison
// is case-insensitive. With matchArtist set, the query is split into
// artist and title parts and the candidate's artist line contributes
// equally to the score; otherwise only the title is compared.
func Score(query string, candidate musicapi.Track, matchArtist bool) float64 {
	query = strings.ToLower(query)
	title := strings.ToLower(candidate.Title)

	if !matchArtist {
		return Ratio(query, title)
	}

	queryArtist, queryTitle := SplitArtist(query)
	titleScore := Ratio(queryTitle, title)
	if queryArtist == "" {
		// No separable artist in the query. The artist half scores
		// zero for every candidate, preserving relative order.
		return titleScore / 2
	}
	artistScore := Ratio(queryArtist, strings.ToLower(candidate.ArtistLine()))
	return (titleScore + artistScore) / 2
}

// FindBest returns the highest-scoring candidate, or false when the
// list is empty. Ties keep the earliest candidate: only a strictly
// greater score displaces the running best.
func FindBest(query string, candidates []musicapi.Track, matchArtist bool) (musicapi.Track, bool) {
	var best musicapi.Track
	if len(candidates) == 0 {
		return best, false
	}
	bestScore := -1.0
	for _, candidate := range candidates {
		score := Score(query, candidate, matchArtist)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best, true
}
