// Package items tracks the authoritative status of every file in an
// upgrade session and enforces the legality of status transitions.
// State lives in a per-session SQLite database that is removed when the
// session closes; nothing survives a restart.
package items
