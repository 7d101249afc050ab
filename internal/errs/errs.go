// Package errs defines the error taxonomy of the data-access core and the
// HTTP error shapes the web layer renders them as.
//
// Store adapters and the content service return (possibly wrapped) sentinels
// from this package, so callers branch with errors.Is and never need to know
// which driver produced the failure.
package errs

import "errors"

var (
	// ErrNotFound reports that no row matches the requested key.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a uniqueness violation on create.
	ErrConflict = errors.New("already exists")

	// ErrStoreUnavailable reports a connection, pool or transport failure,
	// including a store call that ran past its deadline.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrChannelClosed reports that the content service no longer accepts
	// commands. It fails the individual caller, never the process.
	ErrChannelClosed = errors.New("content service closed")

	// ErrReplyLost reports that the content service dropped a command without
	// answering it. It is an internal error signal.
	ErrReplyLost = errors.New("content service reply lost")

	// ErrInvalid reports a payload rejected before reaching the store.
	ErrInvalid = errors.New("invalid entity")
)
