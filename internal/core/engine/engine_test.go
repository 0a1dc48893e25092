package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tally/internal/core/session"
	"github.com/colonyops/tally/internal/core/vars"
)

type memStorage struct {
	saved []*session.Session
}

func (m *memStorage) Save(s *session.Session) (string, error) {
	m.saved = append(m.saved, s)
	return "mem://" + s.ID, nil
}

func newTestEngine() (*Engine, *memStorage) {
	storage := &memStorage{}
	return New(storage, nil, zerolog.Nop()), storage
}

func TestEngine_RequiresStart(t *testing.T) {
	e, _ := newTestEngine()

	_, err := e.State()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Nil(t, e.CurrentItem())
	assert.ErrorIs(t, e.GoBack(), ErrNotStarted)
	assert.ErrorIs(t, e.Complete(), ErrNotStarted)
	assert.ErrorIs(t, e.Save(), ErrNotStarted)
}

func TestEngine_StartInitializesSession(t *testing.T) {
	e, _ := newTestEngine()
	c := conditionalChecklist()

	err := e.Start(c, vars.Vars{"env": vars.String("dev"), "flag": vars.Bool(true)}, "checklists/conditional.yaml")
	require.NoError(t, err)

	state, err := e.State()
	require.NoError(t, err)
	assert.Len(t, state.Session.ID, 32)
	assert.Equal(t, "conditional-1.0", state.Session.ChecklistID)
	assert.Equal(t, session.StatusInProgress, state.Session.Status)
	assert.Equal(t, map[string]string{"env": "dev", "flag": "true"}, state.Session.Variables,
		"variables freeze in string form")
	assert.NotEmpty(t, state.Session.ChecklistDigest)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Len(t, state.Items, 2)

	current := e.CurrentItem()
	require.NotNil(t, current)
	assert.Equal(t, "always-1", current.Item.ID)
}

func TestEngine_RecordAdvancesWithoutCompleting(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.Start(conditionalChecklist(), vars.Vars{"env": vars.String("prod")}, ""))

	item := e.CurrentItem()
	require.NotNil(t, item)
	require.NoError(t, e.RecordResponse(item.Item, session.ResultPass, "", nil, item.MatrixContext))

	state, err := e.State()
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentIndex)
	assert.Nil(t, e.CurrentItem(), "sequence exhausted")
	assert.Equal(t, session.StatusInProgress, state.Session.Status,
		"exhausting items does not complete the session")

	require.NoError(t, e.Complete())
	state, err = e.State()
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, state.Session.Status)
	assert.NotNil(t, state.Session.CompletedAt)
}

func TestEngine_GoBackIsInverseOfRecord(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.Start(matrixChecklist(), vars.Vars{}, ""))

	first := e.CurrentItem()
	require.NoError(t, e.RecordResponse(first.Item, session.ResultPass, "looked fine", nil, first.MatrixContext))

	state, _ := e.State()
	wantResponses := append([]session.Response(nil), state.Session.Responses...)

	require.NoError(t, e.GoBack())
	state, _ = e.State()
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Empty(t, state.Session.Responses)

	again := e.CurrentItem()
	require.NoError(t, e.RecordResponse(again.Item, session.ResultPass, "looked fine", nil, again.MatrixContext))
	state, _ = e.State()
	assert.Equal(t, 1, state.CurrentIndex)
	require.Len(t, state.Session.Responses, 1)
	assert.Equal(t, wantResponses[0].ItemID, state.Session.Responses[0].ItemID)
	assert.Equal(t, wantResponses[0].Result, state.Session.Responses[0].Result)
	assert.Equal(t, wantResponses[0].Notes, state.Session.Responses[0].Notes)
}

func TestEngine_GoBackAtStartFails(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.Start(matrixChecklist(), vars.Vars{}, ""))

	assert.ErrorIs(t, e.GoBack(), ErrNoPreviousItem)
}

func TestEngine_MatrixReanswerScenario(t *testing.T) {
	// Record pass for chrome, go back, record fail for chrome, then pass
	// for firefox: final list is [(chrome, fail), (firefox, pass)].
	e, _ := newTestEngine()
	require.NoError(t, e.Start(matrixChecklist(), vars.Vars{}, ""))

	chrome := e.CurrentItem()
	require.NoError(t, e.RecordResponse(chrome.Item, session.ResultPass, "", nil, chrome.MatrixContext))
	require.NoError(t, e.GoBack())

	chrome = e.CurrentItem()
	assert.Equal(t, map[string]string{"browser": "chrome"}, chrome.MatrixContext)
	require.NoError(t, e.RecordResponse(chrome.Item, session.ResultFail, "", nil, chrome.MatrixContext))

	firefox := e.CurrentItem()
	assert.Equal(t, map[string]string{"browser": "firefox"}, firefox.MatrixContext)
	require.NoError(t, e.RecordResponse(firefox.Item, session.ResultPass, "", nil, firefox.MatrixContext))

	state, _ := e.State()
	require.Len(t, state.Session.Responses, 2)
	assert.Equal(t, session.ResultFail, state.Session.Responses[0].Result)
	assert.Equal(t, map[string]string{"browser": "chrome"}, state.Session.Responses[0].MatrixContext)
	assert.Equal(t, session.ResultPass, state.Session.Responses[1].Result)
	assert.Equal(t, map[string]string{"browser": "firefox"}, state.Session.Responses[1].MatrixContext)
}

func TestEngine_SaveDelegatesToStorage(t *testing.T) {
	e, storage := newTestEngine()
	require.NoError(t, e.Start(matrixChecklist(), vars.Vars{}, ""))

	require.NoError(t, e.Save())
	require.Len(t, storage.saved, 1)

	state, _ := e.State()
	assert.Same(t, state.Session, storage.saved[0])
}

func TestEngine_ResumeSucceedsOnUnchangedChecklist(t *testing.T) {
	e, _ := newTestEngine()
	c := conditionalChecklist()
	require.NoError(t, e.Start(c, vars.Vars{"env": vars.String("dev")}, ""))

	item := e.CurrentItem()
	require.NoError(t, e.RecordResponse(item.Item, session.ResultPass, "", nil, item.MatrixContext))
	state, _ := e.State()
	sess := state.Session

	// Fresh engine and a fresh load of the same content.
	e2, _ := newTestEngine()
	require.NoError(t, e2.Resume(conditionalChecklist(), sess))

	resumed, err := e2.State()
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.CurrentIndex)
	require.NotNil(t, e2.CurrentItem())
	assert.Equal(t, "dev-1", e2.CurrentItem().Item.ID)
}

func TestEngine_ResumeRejectsEditedChecklist(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.Start(conditionalChecklist(), vars.Vars{"env": vars.String("dev")}, ""))
	state, _ := e.State()

	edited := conditionalChecklist()
	edited.Sections[0].Items[0].Check = "always runs, twice"

	e2, _ := newTestEngine()
	err := e2.Resume(edited, state.Session)
	assert.ErrorIs(t, err, ErrChecklistMismatch)
}

func TestEngine_ResumeRejectsShrunkChecklist(t *testing.T) {
	e, _ := newTestEngine()
	c := matrixChecklist()
	require.NoError(t, e.Start(c, vars.Vars{}, ""))
	for e.CurrentItem() != nil {
		item := e.CurrentItem()
		require.NoError(t, e.RecordResponse(item.Item, session.ResultPass, "", nil, item.MatrixContext))
	}
	state, _ := e.State()
	sess := state.Session

	// Same digest cannot be kept after content changes, so clear it to
	// isolate the positional check.
	sess.ChecklistDigest = ""
	shrunk := matrixChecklist()
	shrunk.Sections[0].Items[0].Matrix = shrunk.Sections[0].Items[0].Matrix[:1]

	e2, _ := newTestEngine()
	err := e2.Resume(shrunk, sess)
	assert.ErrorIs(t, err, ErrSessionMismatch)
}

func TestEngine_ResumeRejectsReorderedMatrix(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.Start(matrixChecklist(), vars.Vars{}, ""))
	item := e.CurrentItem()
	require.NoError(t, e.RecordResponse(item.Item, session.ResultPass, "", nil, item.MatrixContext))
	state, _ := e.State()
	sess := state.Session

	sess.ChecklistDigest = ""
	reordered := matrixChecklist()
	reordered.Sections[0].Items[0].Matrix = []map[string]string{
		{"browser": "firefox"},
		{"browser": "chrome"},
	}

	e2, _ := newTestEngine()
	err := e2.Resume(reordered, sess)
	assert.ErrorIs(t, err, ErrSessionMismatch)
}

func TestEngine_ResumeUsesStoredVariables(t *testing.T) {
	e, _ := newTestEngine()
	c := conditionalChecklist()
	require.NoError(t, e.Start(c, vars.Vars{"env": vars.String("prod")}, ""))
	state, _ := e.State()

	e2, _ := newTestEngine()
	require.NoError(t, e2.Resume(conditionalChecklist(), state.Session))

	resumed, _ := e2.State()
	assert.Len(t, resumed.Items, 1, "prod expansion excludes the dev-only section")
}

func TestValidateSessionDigest(t *testing.T) {
	c := conditionalChecklist()
	digest, err := c.Digest()
	require.NoError(t, err)

	t.Run("unbound session passes", func(t *testing.T) {
		got, err := ValidateSessionDigest(&session.Session{}, conditionalChecklist())
		require.NoError(t, err)
		assert.Equal(t, digest, got)
	})

	t.Run("matching digest passes", func(t *testing.T) {
		_, err := ValidateSessionDigest(&session.Session{ChecklistDigest: digest}, conditionalChecklist())
		assert.NoError(t, err)
	})

	t.Run("mismatch fails", func(t *testing.T) {
		_, err := ValidateSessionDigest(&session.Session{ChecklistDigest: "deadbeef"}, conditionalChecklist())
		assert.ErrorIs(t, err, ErrChecklistMismatch)
	})
}

func TestEnsureSessionDigest(t *testing.T) {
	c := conditionalChecklist()
	sess := &session.Session{}

	wrote, err := EnsureSessionDigest(sess, c)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.NotEmpty(t, sess.ChecklistDigest)

	before := sess.ChecklistDigest
	wrote, err = EnsureSessionDigest(sess, c)
	require.NoError(t, err)
	assert.False(t, wrote, "first write wins")
	assert.Equal(t, before, sess.ChecklistDigest)
}

func TestEngineState_StaleStatesShareSession(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.Start(matrixChecklist(), vars.Vars{}, ""))

	stale, _ := e.State()
	item := e.CurrentItem()
	require.NoError(t, e.RecordResponse(item.Item, session.ResultPass, "", nil, item.MatrixContext))
	fresh, _ := e.State()

	// Deliberate aliasing: both states see the appended response, but only
	// the fresh state's pointer advanced.
	assert.Same(t, stale.Session, fresh.Session)
	assert.Len(t, stale.Session.Responses, 1)
	assert.Equal(t, 0, stale.CurrentIndex)
	assert.Equal(t, 1, fresh.CurrentIndex)
}

func TestChecklistItemsByIDCoversExpansion(t *testing.T) {
	c := matrixChecklist()
	items, err := Expand(c, vars.Vars{})
	require.NoError(t, err)

	index := c.ItemsByID()
	for _, resolved := range items {
		_, ok := index[resolved.Item.ID]
		assert.True(t, ok)
	}
}
