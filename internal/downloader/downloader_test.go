package downloader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"uptone/internal/items"
	"uptone/internal/musicapi"
	"uptone/internal/services"
)

type fakeAPI struct {
	urls      map[int]musicapi.SongURL // per tier
	urlErrs   map[int]error
	lyrics    musicapi.Lyrics
	lyricsErr error
	art       musicapi.CoverArt
	payloads  map[string]string // url -> body
	resolved  []int             // tiers asked for, in order
}

func (f *fakeAPI) SongURL(ctx context.Context, trackID, source string, bitrate int) (musicapi.SongURL, error) {
	f.resolved = append(f.resolved, bitrate)
	if err := f.urlErrs[bitrate]; err != nil {
		return musicapi.SongURL{}, err
	}
	return f.urls[bitrate], nil
}

func (f *fakeAPI) Lyrics(ctx context.Context, lyricID, source string) (musicapi.Lyrics, error) {
	return f.lyrics, f.lyricsErr
}

func (f *fakeAPI) AlbumArt(ctx context.Context, picID, source string, size int) (musicapi.CoverArt, error) {
	return f.art, nil
}

func (f *fakeAPI) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, ok := f.payloads[rawURL]
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "fake", "fetch", "no payload", nil)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func testMatch() items.MatchResult {
	return items.MatchResult{TrackID: "1", Title: "SongA", Source: "netease", LyricID: "L1", PicID: "P1"}
}

func TestCascadeStopsAtFirstUsableTier(t *testing.T) {
	api := &fakeAPI{
		urls: map[int]musicapi.SongURL{
			999: {URL: "https://cdn.example/a.flac", Bitrate: 999},
		},
		payloads: map[string]string{"https://cdn.example/a.flac": "audio-bytes"},
	}
	dir := t.TempDir()
	d := New(api, Config{OutputDir: dir, Quality: 999}, nil)

	result, err := d.Download(context.Background(), "/music/Artist - Song.mp3", testMatch())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(api.resolved) != 1 || api.resolved[0] != 999 {
		t.Errorf("resolved tiers = %v, want [999]", api.resolved)
	}
	want := filepath.Join(dir, "Artist - Song.flac")
	if result.Path != want {
		t.Errorf("path = %q, want %q", result.Path, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "audio-bytes" {
		t.Errorf("payload = %q, %v", data, err)
	}
}

func TestCascadeFallsThroughFailedTiers(t *testing.T) {
	api := &fakeAPI{
		urlErrs: map[int]error{999: errors.New("resolver down")},
		urls: map[int]musicapi.SongURL{
			740: {}, // empty URL, tier unavailable
			320: {URL: "https://cdn.example/a.mp3", Bitrate: 320},
		},
		payloads: map[string]string{"https://cdn.example/a.mp3": "lossy"},
	}
	d := New(api, Config{OutputDir: t.TempDir(), Quality: 999}, nil)

	result, err := d.Download(context.Background(), "/music/Song.ogg", testMatch())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got := []int{999, 740, 320}; len(api.resolved) != 3 || api.resolved[2] != got[2] {
		t.Errorf("resolved tiers = %v, want %v", api.resolved, got)
	}
	if result.Bitrate != 320 {
		t.Errorf("bitrate = %d, want 320", result.Bitrate)
	}
	// Stem comes from the original file, not the remote name.
	if filepath.Base(result.Path) != "Song.mp3" {
		t.Errorf("file = %q, want Song.mp3", filepath.Base(result.Path))
	}
}

func TestCascadeExhaustionReportsNotFound(t *testing.T) {
	api := &fakeAPI{}
	d := New(api, Config{OutputDir: t.TempDir(), Quality: 999}, nil)

	_, err := d.Download(context.Background(), "/music/Song.mp3", testMatch())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if len(api.resolved) != 3 {
		t.Errorf("resolved %d tiers, want all 3", len(api.resolved))
	}
}

func TestNonCascadeQualityTriedAlone(t *testing.T) {
	api := &fakeAPI{
		urls:     map[int]musicapi.SongURL{192: {URL: "https://cdn.example/a.mp3"}},
		payloads: map[string]string{"https://cdn.example/a.mp3": "x"},
	}
	d := New(api, Config{OutputDir: t.TempDir(), Quality: 192}, nil)

	if _, err := d.Download(context.Background(), "/m/Song.mp3", testMatch()); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(api.resolved) != 1 || api.resolved[0] != 192 {
		t.Errorf("resolved = %v, want [192]", api.resolved)
	}
}

func TestSidecarsWrittenWhenEnabled(t *testing.T) {
	api := &fakeAPI{
		urls: map[int]musicapi.SongURL{999: {URL: "https://cdn.example/a.flac"}},
		payloads: map[string]string{
			"https://cdn.example/a.flac":    "audio",
			"https://img.example/cover.jpg": "jpeg-bytes",
		},
		lyrics: musicapi.Lyrics{Lyric: "[00:01] line", Translated: "[00:01] translated"},
		art:    musicapi.CoverArt{URL: "https://img.example/cover.jpg"},
	}
	dir := t.TempDir()
	d := New(api, Config{OutputDir: dir, Quality: 999, Lyrics: true, CoverArt: true, PicSize: 500}, nil)

	result, err := d.Download(context.Background(), "/m/Song.mp3", testMatch())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	lrc, err := os.ReadFile(result.LyricsPath)
	if err != nil {
		t.Fatalf("read lyrics: %v", err)
	}
	if !strings.Contains(string(lrc), "translated") {
		t.Errorf("translated lyrics not appended: %q", lrc)
	}
	if filepath.Ext(result.CoverPath) != ".jpg" {
		t.Errorf("cover path = %q", result.CoverPath)
	}
	if _, err := os.Stat(filepath.Join(dir, "Song.jpg")); err != nil {
		t.Errorf("cover sidecar missing: %v", err)
	}
}

func TestSidecarFailureDoesNotFailTrack(t *testing.T) {
	api := &fakeAPI{
		urls:      map[int]musicapi.SongURL{999: {URL: "https://cdn.example/a.flac"}},
		payloads:  map[string]string{"https://cdn.example/a.flac": "audio"},
		lyricsErr: errors.New("lyrics service down"),
	}
	d := New(api, Config{OutputDir: t.TempDir(), Quality: 999, Lyrics: true}, nil)

	result, err := d.Download(context.Background(), "/m/Song.mp3", testMatch())
	if err != nil {
		t.Fatalf("Download should succeed despite lyrics failure: %v", err)
	}
	if result.LyricsPath != "" {
		t.Errorf("lyrics path = %q, want empty", result.LyricsPath)
	}
}

func TestExtensionFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/track.flac?sig=abc", ".flac"},
		{"https://cdn.example/track.FLAC", ".flac"},
		{"https://cdn.example/track%2Ewav", ".wav"},
		{"https://cdn.example/track", ".mp3"},
		{"https://cdn.example/track.longext", ".mp3"},
		{"://bad url", ".mp3"},
	}
	for _, tc := range cases {
		if got := extensionFromURL(tc.url); got != tc.want {
			t.Errorf("extensionFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
