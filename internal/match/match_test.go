package match

import (
	"math"
	"testing"

	"uptone/internal/musicapi"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"abc", "abc", 1},
		{"songa", "songb", 2.0 * 4 / 10},
		{"abcd", "bd", 2.0 * 2 / 6},
	}
	for _, tc := range cases {
		if got := Ratio(tc.a, tc.b); !almostEqual(got, tc.want) {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRatioIsSymmetric(t *testing.T) {
	if Ratio("short", "a much longer string") != Ratio("a much longer string", "short") {
		t.Error("Ratio should not depend on argument order")
	}
}

func TestFindBestEmptyList(t *testing.T) {
	if _, ok := FindBest("anything", nil, false); ok {
		t.Fatal("empty candidate list must return no match")
	}
}

func TestFindBestPrefersCloserTitle(t *testing.T) {
	candidates := []musicapi.Track{
		{ID: "1", Title: "SongA", Artists: []string{"Artist1"}},
		{ID: "2", Title: "SongB", Artists: []string{"Artist2"}},
	}
	best, ok := FindBest("Artist1 - SongA", candidates, false)
	if !ok {
		t.Fatal("expected a match")
	}
	if best.ID != "1" {
		t.Errorf("best = %s, want 1", best.ID)
	}
}

func TestFindBestTieKeepsFirst(t *testing.T) {
	candidates := []musicapi.Track{
		{ID: "first", Title: "Same Title"},
		{ID: "second", Title: "Same Title"},
	}
	best, _ := FindBest("Same Title", candidates, false)
	if best.ID != "first" {
		t.Errorf("tie should keep the earliest candidate, got %s", best.ID)
	}
}

func TestFindBestWithArtistMatching(t *testing.T) {
	candidates := []musicapi.Track{
		{ID: "cover", Title: "Hallelujah", Artists: []string{"Someone Else"}},
		{ID: "original", Title: "Hallelujah", Artists: []string{"Leonard Cohen"}},
	}
	best, _ := FindBest("Leonard Cohen - Hallelujah", candidates, true)
	if best.ID != "original" {
		t.Errorf("artist matching should pick the original, got %s", best.ID)
	}

	// Without artist matching the identical titles tie and the first wins.
	best, _ = FindBest("Leonard Cohen - Hallelujah", candidates, false)
	if best.ID != "cover" {
		t.Errorf("title-only tie should keep the first candidate, got %s", best.ID)
	}
}

func TestSplitArtist(t *testing.T) {
	cases := []struct {
		in            string
		artist, title string
	}{
		{"Artist - Title", "Artist", "Title"},
		{"Artist_Title", "Artist", "Title"},
		{"Artist ~ Title", "Artist", "Title"},
		{"Just A Title", "", "Just A Title"},
	}
	for _, tc := range cases {
		artist, title := SplitArtist(tc.in)
		if artist != tc.artist || title != tc.title {
			t.Errorf("SplitArtist(%q) = (%q, %q), want (%q, %q)", tc.in, artist, title, tc.artist, tc.title)
		}
	}
}

func TestScoreCaseInsensitive(t *testing.T) {
	track := musicapi.Track{Title: "SONGA"}
	if got := Score("songa", track, false); !almostEqual(got, 1) {
		t.Errorf("Score = %v, want 1", got)
	}
}
