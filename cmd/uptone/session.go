package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"uptone/internal/config"
	"uptone/internal/downloader"
	"uptone/internal/items"
	"uptone/internal/library"
	"uptone/internal/logging"
	"uptone/internal/musicapi"
	"uptone/internal/orchestrator"
	"uptone/internal/ratelimit"
	"uptone/internal/services"
)

// sessionFlags are the per-command overrides layered over the config
// file.
type sessionFlags struct {
	source      string
	quality     int
	outputDir   string
	matchArtist bool
	retries     int
	timeout     int
}

func bindSessionFlags(flags *sessionFlags, set *pflag.FlagSet) {
	set.StringVar(&flags.source, "source", "", "Music source to search (see `uptone sources`)")
	set.IntVar(&flags.quality, "quality", 0, "Preferred bitrate: 128, 192, 320, 740 or 999")
	set.StringVar(&flags.outputDir, "output", "", "Directory for downloaded files")
	set.BoolVar(&flags.matchArtist, "match-artist", false, "Require the artist part of the filename to match")
	set.IntVar(&flags.retries, "retries", -1, "Retries per request")
	set.IntVar(&flags.timeout, "timeout", 0, "Request timeout in seconds")
}

func (f sessionFlags) apply(cfg *config.Config, changed func(string) bool) error {
	if changed("source") {
		cfg.API.Source = f.source
	}
	if changed("quality") {
		cfg.Download.Quality = f.quality
	}
	if changed("output") {
		expanded, err := config.ExpandPath(f.outputDir)
		if err != nil {
			return err
		}
		cfg.Paths.OutputDir = expanded
	}
	if changed("match-artist") {
		cfg.Match.MatchArtist = f.matchArtist
	}
	if changed("retries") {
		cfg.API.Retries = f.retries
	}
	if changed("timeout") {
		cfg.API.TimeoutSeconds = f.timeout
	}
	return cfg.Validate()
}

// session bundles everything one run needs. Close releases the lock
// and discards the per-run item database.
type session struct {
	cfg    *config.Config
	runID  string
	logger *logging.Logger
	lock   *flock.Flock
	store  *items.Store
	orch   *orchestrator.Orchestrator
	tracks []string
}

// openSession prepares a run over dir: scans it, takes the single
// session lock, and wires the store, client, and orchestrator. A
// missing directory is the one error worth a non-zero exit.
func openSession(cfg *config.Config, dir string) (*session, error) {
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("directory %s does not exist", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	tracks, err := library.ScanTracks(dir)
	if err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "uptone.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another uptone session is already running")
	}

	runID := uuid.NewString()[:8]
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "uptone.log")},
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	base := logger.With(logging.String(logging.FieldRunID, runID))

	store, err := items.Open(cfg.Paths.StateDir, runID)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	limiter := ratelimit.New(cfg.API.MaxRequests, time.Duration(cfg.API.RateWindowSeconds)*time.Second)
	client := musicapi.NewClient(musicapi.Config{
		BaseURL:        cfg.API.BaseURL,
		Retries:        cfg.API.Retries,
		SearchCount:    cfg.API.SearchCount,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
	}, limiter, musicapi.WithLogger(logging.NewComponentLogger(base, "musicapi")))

	dl := downloader.New(client, downloader.Config{
		OutputDir: cfg.Paths.OutputDir,
		Quality:   cfg.Download.Quality,
		Lyrics:    cfg.Download.Lyrics,
		CoverArt:  cfg.Download.CoverArt,
		PicSize:   cfg.Download.PicSize,
	}, base)

	orch := orchestrator.New(store, client, dl, orchestrator.Config{
		Source:             cfg.API.Source,
		MatchArtist:        cfg.Match.MatchArtist,
		InteractiveTimeout: time.Duration(cfg.API.InteractiveTimeoutSeconds) * time.Second,
	}, base)

	base.Info("session opened",
		logging.String(logging.FieldComponent, "session"),
		logging.String(logging.FieldSource, cfg.API.Source),
		logging.Int("tracks", len(tracks)),
		logging.String("dir", dir))

	return &session{
		cfg:    cfg,
		runID:  runID,
		logger: logger,
		lock:   lock,
		store:  store,
		orch:   orch,
		tracks: tracks,
	}, nil
}

func (s *session) seed(ctx context.Context) error {
	return s.store.AddTracks(ctx, s.tracks)
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close session store",
			logging.String(logging.FieldComponent, "session"),
			logging.Error(err))
	}
	_ = s.lock.Unlock()
}

// runContext attaches the run ID so every log line in the session can
// be correlated.
func (s *session) runContext(parent context.Context) context.Context {
	return services.WithRunID(parent, s.runID)
}
