package items

import (
	"context"
	"fmt"
	"time"
)

// Each transition is one guarded UPDATE: the WHERE clause re-checks the
// current status, so a transition that raced with another actor simply
// does not apply. The boolean result reports whether it took effect;
// an ineligible item is a no-op, not an error.

// SetAutoMatched records a successful batch match. Applies only from
// Pending or MatchFailed; existing successful or manual matches are
// never overwritten by the batch pass.
func (s *Store) SetAutoMatched(ctx context.Context, index int, match MatchResult) (bool, error) {
	if !match.Matched() {
		return false, fmt.Errorf("auto match item %d: empty track id", index)
	}
	return s.transition(ctx,
		`UPDATE session_items
		 SET status = ?, match_id = ?, match_title = ?, match_artist = ?, match_album = ?,
		     match_pic_id = ?, match_lyric_id = ?, match_source = ?, match_score = ?, updated_at = ?
		 WHERE idx = ? AND status IN (?, ?)`,
		StatusAutoMatched,
		match.TrackID, match.Title, match.Artist, match.Album,
		match.PicID, match.LyricID, match.Source, match.Score,
		timestamp(),
		index, StatusPending, StatusMatchFailed,
	)
}

// SetMatchFailed records an unsuccessful batch match. Match columns are
// left untouched so a prior result is never clobbered by a failure.
func (s *Store) SetMatchFailed(ctx context.Context, index int) (bool, error) {
	return s.transition(ctx,
		`UPDATE session_items SET status = ?, updated_at = ? WHERE idx = ? AND status IN (?, ?)`,
		StatusMatchFailed, timestamp(), index, StatusPending, StatusMatchFailed,
	)
}

// SetManualMatched records an operator-chosen candidate. Allowed from
// every status except Ignored, including already-downloaded items.
func (s *Store) SetManualMatched(ctx context.Context, index int, match MatchResult) (bool, error) {
	if !match.Matched() {
		return false, fmt.Errorf("manual match item %d: empty track id", index)
	}
	return s.transition(ctx,
		`UPDATE session_items
		 SET status = ?, match_id = ?, match_title = ?, match_artist = ?, match_album = ?,
		     match_pic_id = ?, match_lyric_id = ?, match_source = ?, match_score = ?, updated_at = ?
		 WHERE idx = ? AND status != ?`,
		StatusManualMatched,
		match.TrackID, match.Title, match.Artist, match.Album,
		match.PicID, match.LyricID, match.Source, match.Score,
		timestamp(),
		index, StatusIgnored,
	)
}

// SetDownloaded records a completed download. Batch downloads land on
// AutoDownloaded; operator-initiated single downloads on
// ManualDownloaded. Allowed from the matched statuses and from
// DownloadFailed on retry.
func (s *Store) SetDownloaded(ctx context.Context, index int, manual bool) (bool, error) {
	target := StatusAutoDownloaded
	if manual {
		target = StatusManualDownloaded
	}
	return s.transition(ctx,
		`UPDATE session_items SET status = ?, updated_at = ? WHERE idx = ? AND status IN (?, ?, ?)`,
		target, timestamp(), index,
		StatusAutoMatched, StatusManualMatched, StatusDownloadFailed,
	)
}

// SetDownloadFailed records a failed download attempt. The match result
// survives so the item can be retried.
func (s *Store) SetDownloadFailed(ctx context.Context, index int) (bool, error) {
	return s.transition(ctx,
		`UPDATE session_items SET status = ?, updated_at = ? WHERE idx = ? AND status IN (?, ?, ?)`,
		StatusDownloadFailed, timestamp(), index,
		StatusAutoMatched, StatusManualMatched, StatusDownloadFailed,
	)
}

// Ignore pushes the current status into the backup column and parks the
// item. Downloaded items cannot be ignored.
func (s *Store) Ignore(ctx context.Context, index int) (bool, error) {
	return s.transition(ctx,
		`UPDATE session_items SET backup_status = status, status = ?, updated_at = ?
		 WHERE idx = ? AND status NOT IN (?, ?, ?)`,
		StatusIgnored, timestamp(), index,
		StatusAutoDownloaded, StatusManualDownloaded, StatusIgnored,
	)
}

// Unignore restores the backed-up status and clears the backup. An
// ignored item without a backup returns to Pending so the next batch
// match pass picks it up again.
func (s *Store) Unignore(ctx context.Context, index int) (bool, error) {
	return s.transition(ctx,
		`UPDATE session_items
		 SET status = COALESCE(backup_status, ?), backup_status = NULL, updated_at = ?
		 WHERE idx = ? AND status = ?`,
		StatusPending, timestamp(), index, StatusIgnored,
	)
}

func (s *Store) transition(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("apply transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition rows affected: %w", err)
	}
	return affected > 0, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
