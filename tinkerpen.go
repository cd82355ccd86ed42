// Package tinkerpen provides the core types of a live HTML/CSS/JS playground:
// the three-buffer Snapshot and the errors raised while persisting, restoring
// and sharing it.
package tinkerpen

// StorageKey is the well-known key the playground saves its snapshot under.
const StorageKey = "savedCode"

// ShareParam is the query parameter that carries an encoded snapshot in a
// share link.
const ShareParam = "code"

// User-visible notices raised by the playground.
const (
	NoticeSaved       = "Code saved!"
	NoticeSaveFailed  = "Failed to save code!"
	NoticeLoaded      = "Code loaded!"
	NoticeLoadFailed  = "Failed to load code!"
	NoticeNoSaved     = "No saved code found."
	NoticeShared      = "Share URL copied to clipboard!"
	NoticeShareFailed = "Failed to share code!"
	NoticeBadShare    = "Invalid shared code."
)
