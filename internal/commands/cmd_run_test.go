package commands

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/session"
	"github.com/colonyops/tally/internal/core/vars"
)

// snapshotStorage records the response list of every save.
type snapshotStorage struct {
	saves [][]session.Response
}

func (s *snapshotStorage) Save(sess *session.Session) (string, error) {
	s.saves = append(s.saves, append([]session.Response(nil), sess.Responses...))
	return "mem://" + sess.ID, nil
}

func walkChecklist() *checklist.Checklist {
	return &checklist.Checklist{
		Name:    "Walk",
		Version: "1.0",
		Domain:  "testing",
		Sections: []checklist.Section{
			{
				Name: "Main",
				Items: []checklist.Item{
					{ID: "first-1", Check: "first check"},
					{ID: "second-1", Check: "second check"},
				},
			},
		},
	}
}

func TestApplyAnswer_RecordSaves(t *testing.T) {
	storage := &snapshotStorage{}
	eng := engine.New(storage, nil, zerolog.Nop())
	require.NoError(t, eng.Start(walkChecklist(), vars.Vars{}, ""))

	item := eng.CurrentItem()
	require.NotNil(t, item)
	require.NoError(t, applyAnswer(eng, *item, itemAnswer{Action: actionAnswer, Result: session.ResultPass}))

	require.Len(t, storage.saves, 1)
	require.Len(t, storage.saves[0], 1)
	assert.Equal(t, "first-1", storage.saves[0][0].ItemID)
}

func TestApplyAnswer_GoBackSavesWithoutDiscardedAnswer(t *testing.T) {
	storage := &snapshotStorage{}
	eng := engine.New(storage, nil, zerolog.Nop())
	require.NoError(t, eng.Start(walkChecklist(), vars.Vars{}, ""))

	item := eng.CurrentItem()
	require.NoError(t, applyAnswer(eng, *item, itemAnswer{Action: actionAnswer, Result: session.ResultFail}))

	// Going back must persist right away: an interrupt before the item is
	// re-answered would otherwise resume with the discarded fail counted.
	item = eng.CurrentItem()
	require.NoError(t, applyAnswer(eng, *item, itemAnswer{Action: actionBack}))

	require.Len(t, storage.saves, 2)
	assert.Empty(t, storage.saves[1], "discarded answer must not be in the saved session")

	item = eng.CurrentItem()
	require.NotNil(t, item)
	assert.Equal(t, "first-1", item.Item.ID, "rewound to the first item")
}
