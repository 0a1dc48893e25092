package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/session"
)

func writeAnswers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func slot(id string, ctx map[string]string) engine.ResolvedItem {
	return engine.ResolvedItem{Item: checklist.Item{ID: id}, MatrixContext: ctx}
}

func TestLoadAnswers_EmptyPath(t *testing.T) {
	answers, err := loadAnswers("")
	require.NoError(t, err)
	assert.Empty(t, answers)
	assert.Equal(t, session.ResultSkip, answers.lookup(slot("any", nil)).Result)
}

func TestLoadAnswers_ScalarAndMappingForms(t *testing.T) {
	path := writeAnswers(t, `
smoke-1: pass
smoke-2:
  result: fail
  notes: broken on staging
  evidence:
    - shots/fail.png
`)
	answers, err := loadAnswers(path)
	require.NoError(t, err)

	got := answers.lookup(slot("smoke-1", nil))
	assert.Equal(t, session.ResultPass, got.Result)

	got = answers.lookup(slot("smoke-2", nil))
	assert.Equal(t, session.ResultFail, got.Result)
	assert.Equal(t, "broken on staging", got.Notes)
	assert.Equal(t, []string{"shots/fail.png"}, got.Evidence)
}

func TestLoadAnswers_MatrixKeyWinsOverBareID(t *testing.T) {
	path := writeAnswers(t, `
browser-check: pass
browser-check@browser=firefox: fail
`)
	answers, err := loadAnswers(path)
	require.NoError(t, err)

	chrome := answers.lookup(slot("browser-check", map[string]string{"browser": "chrome"}))
	assert.Equal(t, session.ResultPass, chrome.Result)

	firefox := answers.lookup(slot("browser-check", map[string]string{"browser": "firefox"}))
	assert.Equal(t, session.ResultFail, firefox.Result)
}

func TestLoadAnswers_UnknownResultDefaultsToSkip(t *testing.T) {
	path := writeAnswers(t, "item-1: maybe\n")
	answers, err := loadAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, session.ResultSkip, answers.lookup(slot("item-1", nil)).Result)
}

func TestLoadAnswers_BadFile(t *testing.T) {
	_, err := loadAnswers(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	path := writeAnswers(t, "item: [unclosed")
	_, err = loadAnswers(path)
	assert.Error(t, err)
}

func TestSplitEvidence(t *testing.T) {
	assert.Nil(t, splitEvidence("  "))
	assert.Equal(t, []string{"a.png", "b.txt"}, splitEvidence("a.png, b.txt,"))
}
