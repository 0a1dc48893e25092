package engine

import (
	"time"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/session"
)

// EngineState is an immutable view over one run: the checklist, the frozen
// expansion for the session's variables, and the position pointer.
//
// The Session is shared by pointer across transitions and mutated in place;
// only CurrentIndex advances by value replacement. That keeps per-step cost
// flat regardless of response-list size, at the price of one rule: callers
// must always use the most recently returned EngineState and never retain a
// stale one.
type EngineState struct {
	Checklist    *checklist.Checklist
	Session      *session.Session
	Items        []ResolvedItem
	CurrentIndex int
}

// CurrentItem returns the item at the position pointer, or nil when every
// item has been answered. A nil return is how callers detect completion
// readiness.
func (s EngineState) CurrentItem() *ResolvedItem {
	if s.CurrentIndex >= len(s.Items) {
		return nil
	}
	item := s.Items[s.CurrentIndex]
	return &item
}

// WithResponse appends the response to the shared session and returns the
// advanced state. Exhausting the sequence does not complete the session;
// completion is an explicit separate transition.
func (s EngineState) WithResponse(r session.Response) EngineState {
	s.Session.Append(r)
	return EngineState{
		Checklist:    s.Checklist,
		Session:      s.Session,
		Items:        s.Items,
		CurrentIndex: s.CurrentIndex + 1,
	}
}

// WithBack discards the most recent response and steps the pointer back.
// This is a genuine rewind, not a cursor move: the popped response is gone
// and the slot must be re-answered.
func (s EngineState) WithBack() (EngineState, error) {
	if s.CurrentIndex == 0 {
		return s, ErrNoPreviousItem
	}
	s.Session.PopResponse()
	return EngineState{
		Checklist:    s.Checklist,
		Session:      s.Session,
		Items:        s.Items,
		CurrentIndex: s.CurrentIndex - 1,
	}, nil
}

// WithCompleted marks the shared session completed. No check that all items
// were answered: partial completion is legal (batch mode defaults the rest
// to skip, interactive runs may stop early on purpose).
func (s EngineState) WithCompleted(now time.Time) EngineState {
	s.Session.MarkCompleted(now)
	return EngineState{
		Checklist:    s.Checklist,
		Session:      s.Session,
		Items:        s.Items,
		CurrentIndex: s.CurrentIndex,
	}
}
