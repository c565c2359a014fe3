package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"uptone/internal/items"
	"uptone/internal/logging"
	"uptone/internal/musicapi"
	"uptone/internal/services"
)

const (
	fallbackExtension = ".mp3"
	maxExtensionLen   = 5 // including the dot
	copyChunkBytes    = 8192
)

// cascadeTiers is the descending quality ladder tried for each track.
var cascadeTiers = []int{999, 740, 320}

// API is the slice of the music client the downloader needs.
type API interface {
	SongURL(ctx context.Context, trackID, source string, bitrate int) (musicapi.SongURL, error)
	Lyrics(ctx context.Context, lyricID, source string) (musicapi.Lyrics, error)
	AlbumArt(ctx context.Context, picID, source string, size int) (musicapi.CoverArt, error)
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Config controls destination layout and sidecar behavior.
type Config struct {
	OutputDir string
	Quality   int
	Lyrics    bool
	CoverArt  bool
	PicSize   int
}

// Result describes what a download produced.
type Result struct {
	Path       string
	Bitrate    int
	LyricsPath string
	CoverPath  string
}

// Downloader resolves and streams tracks through the quality cascade.
type Downloader struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// New constructs a downloader.
func New(api API, cfg Config, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Downloader{api: api, cfg: cfg, logger: logger}
}

// tiers returns the quality ladder for the configured target. Targets
// on the cascade start there and descend; other targets are tried
// alone.
func (d *Downloader) tiers() []int {
	start := -1
	for i, tier := range cascadeTiers {
		if tier == d.cfg.Quality {
			start = i
			break
		}
	}
	if start == -1 {
		return []int{d.cfg.Quality}
	}
	return cascadeTiers[start:]
}

// resolve walks the tiers and returns the first usable URL. Per-tier
// failures are logged and treated as "try the next tier"; only a fully
// exhausted ladder is an error.
func (d *Downloader) resolve(ctx context.Context, match items.MatchResult) (musicapi.SongURL, error) {
	for _, tier := range d.tiers() {
		if err := ctx.Err(); err != nil {
			return musicapi.SongURL{}, err
		}
		resolved, err := d.api.SongURL(ctx, match.TrackID, match.Source, tier)
		if err != nil {
			d.logger.Debug("tier resolution failed",
				logging.String(logging.FieldComponent, "downloader"),
				logging.Int(logging.FieldTier, tier),
				logging.Error(err))
			continue
		}
		if strings.TrimSpace(resolved.URL) == "" {
			d.logger.Debug("tier unavailable",
				logging.String(logging.FieldComponent, "downloader"),
				logging.Int(logging.FieldTier, tier))
			continue
		}
		if resolved.Bitrate == 0 {
			resolved.Bitrate = tier
		}
		return resolved, nil
	}
	return musicapi.SongURL{}, services.Wrap(services.ErrNotFound, "downloader", "resolve",
		fmt.Sprintf("no quality tier available for track %s", match.TrackID), nil)
}

// Download fetches the best available rendition of the matched track.
// The destination keeps originalPath's stem; only the extension follows
// the resolved URL. A failed stream may leave a truncated file behind;
// the caller decides whether to retry or remove it.
func (d *Downloader) Download(ctx context.Context, originalPath string, match items.MatchResult) (Result, error) {
	var result Result
	if !match.Matched() {
		return result, services.Wrap(services.ErrValidation, "downloader", "download", "item has no match", nil)
	}

	resolved, err := d.resolve(ctx, match)
	if err != nil {
		return result, err
	}

	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("create output dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(originalPath), filepath.Ext(originalPath))
	dest := filepath.Join(d.cfg.OutputDir, stem+extensionFromURL(resolved.URL))

	if err := d.stream(ctx, resolved.URL, dest); err != nil {
		return result, err
	}
	result.Path = dest
	result.Bitrate = resolved.Bitrate

	d.logger.Info("track downloaded",
		logging.String(logging.FieldComponent, "downloader"),
		logging.String(logging.FieldFile, dest),
		logging.Int(logging.FieldTier, resolved.Bitrate))

	// Sidecars are best effort: a missing lyric or cover never fails
	// the track itself.
	if d.cfg.Lyrics && match.LyricID != "" {
		if lyricsPath, err := d.writeLyrics(ctx, dest, match); err != nil {
			d.logger.Warn("lyrics sidecar failed",
				logging.String(logging.FieldComponent, "downloader"),
				logging.String(logging.FieldFile, dest),
				logging.Error(err))
		} else {
			result.LyricsPath = lyricsPath
		}
	}
	if d.cfg.CoverArt && match.PicID != "" {
		if coverPath, err := d.writeCover(ctx, dest, match); err != nil {
			d.logger.Warn("cover sidecar failed",
				logging.String(logging.FieldComponent, "downloader"),
				logging.String(logging.FieldFile, dest),
				logging.Error(err))
		} else {
			result.CoverPath = coverPath
		}
	}

	return result, nil
}

func (d *Downloader) stream(ctx context.Context, rawURL, dest string) error {
	body, err := d.api.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %q: %w", dest, err)
	}

	buf := make([]byte, copyChunkBytes)
	_, copyErr := io.CopyBuffer(file, body, buf)
	closeErr := file.Close()
	if copyErr != nil {
		return services.Wrap(services.ErrTransient, "downloader", "stream", "copy payload", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %q: %w", dest, closeErr)
	}
	return nil
}

func (d *Downloader) writeLyrics(ctx context.Context, audioPath string, match items.MatchResult) (string, error) {
	lyrics, err := d.api.Lyrics(ctx, match.LyricID, match.Source)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(lyrics.Lyric) == "" {
		return "", services.Wrap(services.ErrNotFound, "downloader", "lyrics", "no lyrics for track", nil)
	}
	content := lyrics.Lyric
	if strings.TrimSpace(lyrics.Translated) != "" {
		content += "\n\n" + lyrics.Translated
	}
	dest := sidecarPath(audioPath, ".lrc")
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write lyrics: %w", err)
	}
	return dest, nil
}

func (d *Downloader) writeCover(ctx context.Context, audioPath string, match items.MatchResult) (string, error) {
	art, err := d.api.AlbumArt(ctx, match.PicID, match.Source, d.cfg.PicSize)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(art.URL) == "" {
		return "", services.Wrap(services.ErrNotFound, "downloader", "cover", "no cover art for track", nil)
	}
	dest := sidecarPath(audioPath, ".jpg")
	if err := d.stream(ctx, art.URL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func sidecarPath(audioPath, ext string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ext
}

// extensionFromURL derives the file extension from the decoded path of
// a resolved URL. Anything missing or implausibly long falls back to
// ".mp3".
func extensionFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallbackExtension
	}
	ext := path.Ext(parsed.Path)
	if ext == "" || len(ext) > maxExtensionLen {
		return fallbackExtension
	}
	return strings.ToLower(ext)
}
