package items

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedTracks(t *testing.T, store *Store, paths ...string) {
	t.Helper()
	if err := store.AddTracks(context.Background(), paths); err != nil {
		t.Fatalf("add tracks: %v", err)
	}
}

func itemStatus(t *testing.T, store *Store, index int) Status {
	t.Helper()
	item, err := store.Get(context.Background(), index)
	if err != nil {
		t.Fatalf("get item %d: %v", index, err)
	}
	return item.Status
}

func TestAddTracksStartsPending(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "a.mp3", "b.mp3", "c.mp3")

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d items, want 3", len(list))
	}
	for i, item := range list {
		if item.Index != i {
			t.Errorf("item %d has index %d", i, item.Index)
		}
		if item.Status != StatusPending {
			t.Errorf("item %d status = %s, want pending", i, item.Status)
		}
	}
}

func TestAutoMatchTransitions(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "song.mp3")
	ctx := context.Background()

	applied, err := store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "1", Title: "SongA"})
	if err != nil || !applied {
		t.Fatalf("SetAutoMatched = (%v, %v), want applied", applied, err)
	}
	item, _ := store.Get(ctx, 0)
	if item.Status != StatusAutoMatched || item.Match.TrackID != "1" {
		t.Fatalf("item = %+v", item)
	}

	// A second batch pass must not redo a successful match.
	applied, err = store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("auto match over an existing match should be a no-op")
	}

	// A failure report cannot clobber the stored match either.
	applied, _ = store.SetMatchFailed(ctx, 0)
	if applied {
		t.Error("match failure over a successful match should be a no-op")
	}
	item, _ = store.Get(ctx, 0)
	if item.Match.TrackID != "1" {
		t.Errorf("match id = %q, want preserved %q", item.Match.TrackID, "1")
	}
}

func TestMatchFailedRetriesOnNextPass(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "song.mp3")
	ctx := context.Background()

	if applied, _ := store.SetMatchFailed(ctx, 0); !applied {
		t.Fatal("pending item should accept a failure")
	}
	if applied, _ := store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "7"}); !applied {
		t.Fatal("failed item should accept a later success")
	}
	if got := itemStatus(t, store, 0); got != StatusAutoMatched {
		t.Errorf("status = %s", got)
	}
}

func TestManualMatchAllowedExceptIgnored(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "a.mp3", "b.mp3")
	ctx := context.Background()

	// Even a downloaded item may be re-pointed manually.
	store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "1"})
	store.SetDownloaded(ctx, 0, false)
	if applied, _ := store.SetManualMatched(ctx, 0, MatchResult{TrackID: "9"}); !applied {
		t.Error("manual match on a downloaded item should apply")
	}

	store.Ignore(ctx, 1)
	if applied, _ := store.SetManualMatched(ctx, 1, MatchResult{TrackID: "9"}); applied {
		t.Error("manual match on an ignored item must be a no-op")
	}
}

func TestDownloadTransitions(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "a.mp3", "b.mp3")
	ctx := context.Background()

	// Downloads require a match first.
	if applied, _ := store.SetDownloaded(ctx, 0, false); applied {
		t.Error("download without a match should be a no-op")
	}

	store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "1"})
	if applied, _ := store.SetDownloadFailed(ctx, 0); !applied {
		t.Fatal("matched item should accept a download failure")
	}
	item, _ := store.Get(ctx, 0)
	if item.Match.TrackID != "1" {
		t.Error("download failure must keep the match for retry")
	}
	if applied, _ := store.SetDownloaded(ctx, 0, true); !applied {
		t.Fatal("failed download should be retryable")
	}
	if got := itemStatus(t, store, 0); got != StatusManualDownloaded {
		t.Errorf("status = %s, want manual_downloaded", got)
	}
}

func TestIgnoreUnignoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "song.mp3")
	ctx := context.Background()

	store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "1", Title: "SongA", Score: 0.9})
	if applied, _ := store.Ignore(ctx, 0); !applied {
		t.Fatal("matched item should be ignorable")
	}
	item, _ := store.Get(ctx, 0)
	if item.Status != StatusIgnored || item.Backup != StatusAutoMatched {
		t.Fatalf("after ignore: %+v", item)
	}

	if applied, _ := store.Unignore(ctx, 0); !applied {
		t.Fatal("ignored item should unignore")
	}
	item, _ = store.Get(ctx, 0)
	if item.Status != StatusAutoMatched {
		t.Errorf("status = %s, want restored auto_matched", item.Status)
	}
	if item.Backup != "" {
		t.Errorf("backup = %s, want cleared", item.Backup)
	}
	if item.Match.TrackID != "1" || item.Match.Title != "SongA" {
		t.Errorf("match not preserved: %+v", item.Match)
	}
}

func TestIgnoreRejectedForDownloaded(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "song.mp3")
	ctx := context.Background()

	store.SetAutoMatched(ctx, 0, MatchResult{TrackID: "1"})
	store.SetDownloaded(ctx, 0, false)
	if applied, _ := store.Ignore(ctx, 0); applied {
		t.Error("downloaded item must not be ignorable")
	}
	if got := itemStatus(t, store, 0); got != StatusAutoDownloaded {
		t.Errorf("status = %s, want unchanged auto_downloaded", got)
	}
}

func TestEligibilityPredicates(t *testing.T) {
	downloadable := map[Status]bool{
		StatusAutoMatched:   true,
		StatusManualMatched: true,
	}
	for _, status := range allStatuses {
		if got := status.CanDownload(); got != downloadable[status] {
			t.Errorf("CanDownload(%s) = %v", status, got)
		}
	}

	if StatusIgnored.CanAutoMatch() {
		t.Error("ignored items are excluded from auto match")
	}
	if StatusAutoDownloaded.CanIgnore() {
		t.Error("downloaded items cannot be ignored")
	}
	if !StatusIgnored.CanUnignore() {
		t.Error("ignored items can be unignored")
	}
	if StatusIgnored.CanManualMatch() {
		t.Error("ignored items cannot be manually matched")
	}
}

func TestCloseRemovesSessionFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "run42")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedTracks(t, store, "song.mp3")

	dbPath := filepath.Join(dir, "session-run42.db")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("session db missing before close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("session db still present after close: %v", err)
	}
}

func TestGetMissingIndex(t *testing.T) {
	store := newTestStore(t)
	seedTracks(t, store, "song.mp3")
	if _, err := store.Get(context.Background(), 5); err == nil {
		t.Fatal("expected not-found error")
	}
}
