package engine

import "errors"

var (
	// ErrNotStarted is returned when an operation needs an active run and
	// neither Start nor Resume has succeeded.
	ErrNotStarted = errors.New("engine has not been started")

	// ErrNoPreviousItem is returned by GoBack at the first item.
	ErrNoPreviousItem = errors.New("cannot go back: already at the first item")

	// ErrChecklistMismatch signals that checklist content drifted from the
	// digest stored on a session. Continuing would silently reinterpret old
	// answers against new check text, so callers must refuse.
	ErrChecklistMismatch = errors.New("checklist contents do not match the saved session")

	// ErrSessionMismatch signals that stored responses no longer line up
	// positionally with the freshly expanded items.
	ErrSessionMismatch = errors.New("session responses do not match the checklist items")
)
