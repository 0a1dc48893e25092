// Package engine drives checklist execution: expansion of a checklist plus
// variables into an ordered item sequence, and a strictly sequential state
// machine over that sequence with digest-guarded resume.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/session"
	"github.com/colonyops/tally/internal/core/vars"
)

// Storage persists sessions. Save returns the location written to.
type Storage interface {
	Save(s *session.Session) (string, error)
}

// ExpansionCache memoizes expansion results keyed by checklist content and
// variables. A cache is pure optimization: misses and unusable entries fall
// through to a fresh expansion.
type ExpansionCache interface {
	ReadExpansion(c *checklist.Checklist, variables vars.Vars) ([]ResolvedItem, bool)
	WriteExpansion(c *checklist.Checklist, variables vars.Vars, items []ResolvedItem)
}

// Engine owns the active run. All operations are synchronous, in-memory
// computations; blocking happens only at the Storage boundary.
type Engine struct {
	storage Storage
	cache   ExpansionCache
	log     zerolog.Logger
	state   *EngineState
}

// New creates an engine. cache may be nil to disable memoization.
func New(storage Storage, cache ExpansionCache, log zerolog.Logger) *Engine {
	return &Engine{storage: storage, cache: cache, log: log}
}

// State returns the current engine state. Fails with ErrNotStarted before
// Start or Resume.
func (e *Engine) State() (EngineState, error) {
	if e.state == nil {
		return EngineState{}, ErrNotStarted
	}
	return *e.state, nil
}

// CurrentItem returns the next unanswered item, or nil when the sequence is
// exhausted or no run is active.
func (e *Engine) CurrentItem() *ResolvedItem {
	if e.state == nil {
		return nil
	}
	return e.state.CurrentItem()
}

func (e *Engine) expand(c *checklist.Checklist, variables vars.Vars) ([]ResolvedItem, error) {
	if e.cache != nil {
		if items, ok := e.cache.ReadExpansion(c, variables); ok {
			return items, nil
		}
	}
	items, err := Expand(c, variables)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.WriteExpansion(c, variables, items)
	}
	return items, nil
}

// Start expands the checklist with the given variables and opens a fresh
// session bound to the checklist's digest. Variables are normalized to their
// string form and frozen onto the session for its whole lifetime.
func (e *Engine) Start(c *checklist.Checklist, variables vars.Vars, checklistPath string) error {
	items, err := e.expand(c, variables)
	if err != nil {
		return err
	}

	sess := &session.Session{
		ID:            newSessionID(),
		ChecklistID:   c.ID(),
		ChecklistPath: checklistPath,
		StartedAt:     time.Now().UTC(),
		Status:        session.StatusInProgress,
		Variables:     variables.Strings(),
		Responses:     []session.Response{},
	}
	if _, err := EnsureSessionDigest(sess, c); err != nil {
		return err
	}

	e.state = &EngineState{Checklist: c, Session: sess, Items: items}
	e.log.Info().
		Str("session_id", sess.ID).
		Str("checklist_id", sess.ChecklistID).
		Int("total_items", len(items)).
		Msg("session started")
	return nil
}

// Resume reconciles a stored session against the current checklist before
// continuing: the digest must match, the expansion re-run with the stored
// variables must be at least as long as the response list, and every stored
// response must match the expanded item at its index by item id and
// normalized matrix key. Any failure refuses the resume outright.
func (e *Engine) Resume(c *checklist.Checklist, sess *session.Session) error {
	if _, err := ValidateSessionDigest(sess, c); err != nil {
		return err
	}

	items, err := e.expand(c, vars.FromStrings(sess.Variables))
	if err != nil {
		return err
	}

	if len(sess.Responses) > len(items) {
		return fmt.Errorf("%w: %d responses recorded but only %d items expand",
			ErrSessionMismatch, len(sess.Responses), len(items))
	}
	for index, response := range sess.Responses {
		item := items[index]
		if response.ItemID != item.Item.ID {
			return fmt.Errorf("%w: position %d holds %q, checklist expands %q",
				ErrSessionMismatch, index, response.ItemID, item.Item.ID)
		}
		if MatrixKey(response.MatrixContext) != MatrixKey(item.MatrixContext) {
			return fmt.Errorf("%w: matrix context for %q changed at position %d",
				ErrSessionMismatch, response.ItemID, index)
		}
	}

	e.state = &EngineState{
		Checklist:    c,
		Session:      sess,
		Items:        items,
		CurrentIndex: len(sess.Responses),
	}
	e.log.Info().
		Str("session_id", sess.ID).
		Int("completed", len(sess.Responses)).
		Int("total", len(items)).
		Msg("session resumed")
	return nil
}

// RecordResponse appends an answer for the current item and advances.
func (e *Engine) RecordResponse(item checklist.Item, result session.Result, notes string, evidence []string, matrixContext map[string]string) error {
	if e.state == nil {
		return ErrNotStarted
	}

	next := e.state.WithResponse(session.Response{
		ItemID:        item.ID,
		Result:        result,
		AnsweredAt:    time.Now().UTC(),
		Notes:         notes,
		Evidence:      evidence,
		MatrixContext: matrixContext,
	})
	e.state = &next
	e.log.Debug().
		Str("item_id", item.ID).
		Str("result", string(result)).
		Str("progress", fmt.Sprintf("%d/%d", next.CurrentIndex, len(next.Items))).
		Msg("response recorded")
	return nil
}

// GoBack discards the last response and rewinds one position. The discarded
// answer is logged so the log file keeps an audit trail of it.
func (e *Engine) GoBack() error {
	if e.state == nil {
		return ErrNotStarted
	}

	discarded := ""
	if n := len(e.state.Session.Responses); n > 0 {
		discarded = e.state.Session.Responses[n-1].ItemID
	}
	next, err := e.state.WithBack()
	if err != nil {
		return err
	}
	e.state = &next
	e.log.Debug().
		Str("discarded_item_id", discarded).
		Int("current_index", next.CurrentIndex).
		Msg("went back")
	return nil
}

// Complete marks the session finished.
func (e *Engine) Complete() error {
	if e.state == nil {
		return ErrNotStarted
	}
	next := e.state.WithCompleted(time.Now().UTC())
	e.state = &next
	e.log.Info().
		Str("session_id", next.Session.ID).
		Int("total_responses", len(next.Session.Responses)).
		Msg("session completed")
	return nil
}

// Save persists the session through storage.
func (e *Engine) Save() error {
	if e.state == nil {
		return ErrNotStarted
	}
	if _, err := e.storage.Save(e.state.Session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	e.log.Debug().Str("session_id", e.state.Session.ID).Msg("session saved")
	return nil
}

// newSessionID returns an opaque unique token: a uuid without separators,
// 32 lowercase hex characters.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
