package items

import "time"

// Status represents the lifecycle of a tracked file.
type Status string

const (
	StatusPending          Status = "pending"
	StatusAutoMatched      Status = "auto_matched"
	StatusManualMatched    Status = "manual_matched"
	StatusMatchFailed      Status = "match_failed"
	StatusAutoDownloaded   Status = "auto_downloaded"
	StatusManualDownloaded Status = "manual_downloaded"
	StatusDownloadFailed   Status = "download_failed"
	StatusIgnored          Status = "ignored"
)

var allStatuses = []Status{
	StatusPending,
	StatusAutoMatched,
	StatusManualMatched,
	StatusMatchFailed,
	StatusAutoDownloaded,
	StatusManualDownloaded,
	StatusDownloadFailed,
	StatusIgnored,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is one of the defined lifecycle values.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Display returns a short human-readable label for tables.
func (s Status) Display() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAutoMatched:
		return "matched"
	case StatusManualMatched:
		return "matched (manual)"
	case StatusMatchFailed:
		return "match failed"
	case StatusAutoDownloaded:
		return "downloaded"
	case StatusManualDownloaded:
		return "downloaded (manual)"
	case StatusDownloadFailed:
		return "download failed"
	case StatusIgnored:
		return "ignored"
	default:
		return string(s)
	}
}

// Matched reports whether the status carries a successful match.
func (s Status) Matched() bool {
	switch s {
	case StatusAutoMatched, StatusManualMatched, StatusAutoDownloaded, StatusManualDownloaded:
		return true
	}
	return false
}

// MatchResult is the remote candidate an item resolved to. A zero
// TrackID means the item is unmatched.
type MatchResult struct {
	TrackID string
	Title   string
	Artist  string
	Album   string
	PicID   string
	LyricID string
	Source  string
	Score   float64
}

// Matched reports whether the result refers to a usable remote track.
func (m MatchResult) Matched() bool {
	return m.TrackID != ""
}

// Item is one tracked file within a session.
type Item struct {
	Index     int
	Path      string
	Status    Status
	Backup    Status // set only while Status is StatusIgnored
	Match     MatchResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eligibility predicates. Each is a pure projection of the current
// status; callers use them to decide which actions to offer or run.

// CanIgnore reports whether the item may be pushed onto the ignore
// list. Downloaded items stay visible.
func (s Status) CanIgnore() bool {
	switch s {
	case StatusAutoDownloaded, StatusManualDownloaded, StatusIgnored:
		return false
	}
	return true
}

// CanManualMatch reports whether a manual candidate selection is
// allowed. Everything except ignored items can be re-pointed.
func (s Status) CanManualMatch() bool {
	return s != StatusIgnored
}

// CanAutoMatch reports whether a batch match pass should process the
// item. Successful matches are preserved, not redone.
func (s Status) CanAutoMatch() bool {
	return s == StatusPending || s == StatusMatchFailed
}

// CanDownload reports whether a batch download pass should process the
// item.
func (s Status) CanDownload() bool {
	return s == StatusAutoMatched || s == StatusManualMatched
}

// CanUnignore reports whether the item is currently ignored.
func (s Status) CanUnignore() bool {
	return s == StatusIgnored
}
