package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"uptone/internal/downloader"
	"uptone/internal/items"
	"uptone/internal/library"
	"uptone/internal/logging"
	"uptone/internal/match"
	"uptone/internal/musicapi"
	"uptone/internal/services"
)

// Event reports one item's progress to the presentation layer.
type Event struct {
	Index  int
	Path   string
	Match  string
	Status items.Status
	Err    error
}

// Summary aggregates the outcome of one batch pass.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Total     int
}

// Searcher is the slice of the music client the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, name, source string) ([]musicapi.Track, error)
}

// TrackDownloader fetches one matched track to disk.
type TrackDownloader interface {
	Download(ctx context.Context, originalPath string, match items.MatchResult) (downloader.Result, error)
}

// Config controls matching behavior. InteractiveTimeout bounds
// operator-initiated remote calls; zero means no extra deadline.
type Config struct {
	Source             string
	MatchArtist        bool
	InteractiveTimeout time.Duration
}

// Orchestrator sequences batch operations over the session store. Both
// batch passes walk items in index order, one at a time; the remote
// service's rate limit makes parallel calls pointless, and sequential
// order keeps progress reporting simple.
type Orchestrator struct {
	store      *items.Store
	searcher   Searcher
	downloader TrackDownloader
	cfg        Config
	logger     *slog.Logger

	eventMu      sync.Mutex
	events       chan Event
	eventsClosed bool
}

// New constructs an orchestrator. events receives one Event per
// processed item; the caller owns draining it.
func New(store *items.Store, searcher Searcher, dl TrackDownloader, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:      store,
		searcher:   searcher,
		downloader: dl,
		cfg:        cfg,
		logger:     logger,
		events:     make(chan Event, 16),
	}
}

// Events exposes the progress stream. It is closed by CloseEvents once
// the caller is done issuing batch operations.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// CloseEvents closes the progress stream. Interactive operations may
// still be in flight when the batch caller shuts down, so emission and
// close share a lock; a late emit is dropped instead of panicking.
func (o *Orchestrator) CloseEvents() {
	o.eventMu.Lock()
	defer o.eventMu.Unlock()
	if o.eventsClosed {
		return
	}
	o.eventsClosed = true
	close(o.events)
}

func (o *Orchestrator) emit(ctx context.Context, event Event) {
	o.eventMu.Lock()
	defer o.eventMu.Unlock()
	if o.eventsClosed {
		return
	}
	select {
	case o.events <- event:
	case <-ctx.Done():
	}
}

// interactiveContext applies the interactive deadline to an
// operator-initiated call.
func (o *Orchestrator) interactiveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.InteractiveTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.cfg.InteractiveTimeout)
}

// MatchAll runs one batch match pass. Ignored items and items that
// already hold a successful match are skipped; per-item failures become
// MatchFailed and never abort the pass. Only cancellation or a store
// failure stops it early.
func (o *Orchestrator) MatchAll(ctx context.Context) (Summary, error) {
	var summary Summary
	list, err := o.store.List(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = len(list)

	for _, item := range list {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !item.Status.CanAutoMatch() {
			summary.Skipped++
			continue
		}
		updated, err := o.matchOne(ctx, item)
		if err != nil {
			return summary, err
		}
		if updated.Status.Matched() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

// matchOne searches for item's cleaned filename and applies the result.
// The returned item reflects the stored state after the transition.
func (o *Orchestrator) matchOne(ctx context.Context, item *items.Item) (*items.Item, error) {
	ctx = services.WithItemIndex(ctx, item.Index)
	ctx = services.WithOperation(ctx, "match")
	query := library.CleanForSearch(item.Path)

	candidates, err := o.searcher.Search(ctx, library.QueryEscape(query), o.cfg.Source)
	if err != nil {
		logging.WithContext(ctx, o.logger).Warn("search failed",
			logging.String(logging.FieldComponent, "orchestrator"),
			logging.String(logging.FieldFile, item.Path),
			logging.Error(err))
		return o.recordMatchFailure(ctx, item, err)
	}

	best, ok := match.FindBest(query, candidates, o.cfg.MatchArtist)
	if !ok || best.ID == "" {
		return o.recordMatchFailure(ctx, item, nil)
	}

	result := items.MatchResult{
		TrackID: best.ID,
		Title:   best.Title,
		Artist:  best.ArtistLine(),
		Album:   best.Album,
		PicID:   best.PicID,
		LyricID: best.LyricID,
		Source:  o.cfg.Source,
		Score:   match.Score(query, best, o.cfg.MatchArtist),
	}
	if _, err := o.store.SetAutoMatched(ctx, item.Index, result); err != nil {
		return nil, err
	}
	updated, err := o.store.Get(ctx, item.Index)
	if err != nil {
		return nil, err
	}
	o.emit(ctx, Event{
		Index:  updated.Index,
		Path:   updated.Path,
		Match:  matchText(updated.Match),
		Status: updated.Status,
	})
	return updated, nil
}

func (o *Orchestrator) recordMatchFailure(ctx context.Context, item *items.Item, cause error) (*items.Item, error) {
	if _, err := o.store.SetMatchFailed(ctx, item.Index); err != nil {
		return nil, err
	}
	updated, err := o.store.Get(ctx, item.Index)
	if err != nil {
		return nil, err
	}
	o.emit(ctx, Event{
		Index:  updated.Index,
		Path:   updated.Path,
		Status: updated.Status,
		Err:    cause,
	})
	return updated, nil
}

// DownloadAll runs one batch download pass over every item currently in
// a matched status. Ignored items are excluded even when their backup
// would qualify. Per-item failures become DownloadFailed and the pass
// continues.
func (o *Orchestrator) DownloadAll(ctx context.Context) (Summary, error) {
	var summary Summary
	list, err := o.store.List(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = len(list)

	for _, item := range list {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !item.Status.CanDownload() {
			summary.Skipped++
			continue
		}
		ok, err := o.downloadOne(ctx, item, false)
		if err != nil {
			return summary, err
		}
		if ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

// downloadOne fetches one item and applies the resulting transition.
// The boolean reports download success; errors are reserved for
// cancellation and store failures.
func (o *Orchestrator) downloadOne(ctx context.Context, item *items.Item, manual bool) (bool, error) {
	ctx = services.WithItemIndex(ctx, item.Index)
	ctx = services.WithOperation(ctx, "download")

	result, err := o.downloader.Download(ctx, item.Path, item.Match)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logging.WithContext(ctx, o.logger).Warn("download failed",
			logging.String(logging.FieldComponent, "orchestrator"),
			logging.String(logging.FieldFile, item.Path),
			logging.Error(err))
		if _, storeErr := o.store.SetDownloadFailed(ctx, item.Index); storeErr != nil {
			return false, storeErr
		}
		o.emit(ctx, Event{
			Index:  item.Index,
			Path:   item.Path,
			Match:  matchText(item.Match),
			Status: items.StatusDownloadFailed,
			Err:    err,
		})
		return false, nil
	}

	applied, err := o.store.SetDownloaded(ctx, item.Index, manual)
	if err != nil {
		return false, err
	}
	if !applied {
		// The item moved to a non-downloadable status while the payload
		// was streaming. The store stays authoritative; report what it
		// holds rather than the transition that lost.
		updated, getErr := o.store.Get(ctx, item.Index)
		if getErr != nil {
			return false, getErr
		}
		logging.WithContext(ctx, o.logger).Warn("item state changed during download",
			logging.String(logging.FieldComponent, "orchestrator"),
			logging.String(logging.FieldFile, item.Path),
			logging.String("status", updated.Status.Display()))
		o.emit(ctx, Event{
			Index:  item.Index,
			Path:   result.Path,
			Match:  matchText(item.Match),
			Status: updated.Status,
		})
		return false, nil
	}
	status := items.StatusAutoDownloaded
	if manual {
		status = items.StatusManualDownloaded
	}
	o.emit(ctx, Event{
		Index:  item.Index,
		Path:   result.Path,
		Match:  matchText(item.Match),
		Status: status,
	})
	return true, nil
}

// AutoMatchOne re-runs the batch match logic for a single item.
func (o *Orchestrator) AutoMatchOne(ctx context.Context, index int) (*items.Item, error) {
	ctx, cancel := o.interactiveContext(ctx)
	defer cancel()
	item, err := o.store.Get(ctx, index)
	if err != nil {
		return nil, err
	}
	if !item.Status.CanAutoMatch() {
		return item, services.Wrap(services.ErrValidation, "orchestrator", "auto_match",
			fmt.Sprintf("item %d is %s", index, item.Status), nil)
	}
	return o.matchOne(ctx, item)
}

// Candidates searches the remote service for an item's cleaned
// filename, for the operator to pick from.
func (o *Orchestrator) Candidates(ctx context.Context, index int) ([]musicapi.Track, error) {
	ctx, cancel := o.interactiveContext(ctx)
	defer cancel()
	item, err := o.store.Get(ctx, index)
	if err != nil {
		return nil, err
	}
	query := library.QueryEscape(library.CleanForSearch(item.Path))
	return o.searcher.Search(ctx, query, o.cfg.Source)
}

// ManualMatch records an operator-selected candidate for an item.
func (o *Orchestrator) ManualMatch(ctx context.Context, index int, track musicapi.Track) (*items.Item, error) {
	if track.ID == "" {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "manual_match", "candidate has no id", nil)
	}
	ctx, cancel := o.interactiveContext(ctx)
	defer cancel()
	item, err := o.store.Get(ctx, index)
	if err != nil {
		return nil, err
	}
	result := items.MatchResult{
		TrackID: track.ID,
		Title:   track.Title,
		Artist:  track.ArtistLine(),
		Album:   track.Album,
		PicID:   track.PicID,
		LyricID: track.LyricID,
		Source:  o.cfg.Source,
		Score:   match.Score(library.CleanForSearch(item.Path), track, o.cfg.MatchArtist),
	}
	applied, err := o.store.SetManualMatched(ctx, index, result)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "manual_match",
			fmt.Sprintf("item %d is not eligible", index), nil)
	}
	return o.store.Get(ctx, index)
}

// DownloadOne runs a single operator-initiated download. Success lands
// on ManualDownloaded. The interactive deadline is not applied here;
// streaming a full track routinely outlives it, so the client's own
// timeout governs.
func (o *Orchestrator) DownloadOne(ctx context.Context, index int) (*items.Item, error) {
	item, err := o.store.Get(ctx, index)
	if err != nil {
		return nil, err
	}
	if !item.Status.CanDownload() && item.Status != items.StatusDownloadFailed {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "download",
			fmt.Sprintf("item %d is %s, not downloadable", index, item.Status), nil)
	}
	if _, err := o.downloadOne(ctx, item, true); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, index)
}

// Ignore parks an item; its current status is preserved for Unignore.
func (o *Orchestrator) Ignore(ctx context.Context, index int) (*items.Item, error) {
	if _, err := o.store.Ignore(ctx, index); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, index)
}

// Unignore restores an ignored item's previous status.
func (o *Orchestrator) Unignore(ctx context.Context, index int) (*items.Item, error) {
	if _, err := o.store.Unignore(ctx, index); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, index)
}

func matchText(m items.MatchResult) string {
	if !m.Matched() {
		return ""
	}
	if m.Artist == "" {
		return m.Title
	}
	return m.Artist + " - " + m.Title
}
