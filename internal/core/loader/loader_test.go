package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tally/internal/core/cache"
)

const validDoc = `
name: Web Release
version: "1.2"
domain: web
metadata:
  author: qa-team
  tags: [release]
variables:
  env:
    prompt: Target environment
    required: true
    options: [dev, staging, prod]
sections:
  - name: Smoke
    condition: env == "prod"
    items:
      - id: smoke-1
        check: Homepage loads
        severity: high
      - id: smoke-2
        check: Login works
        evidence_required: true
        matrix:
          - browser: chrome
          - browser: firefox
`

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := New(nil)
	require.NoError(t, err)
	return l
}

func TestParse_ValidDocument(t *testing.T) {
	c, issues, err := newTestLoader(t).Parse([]byte(validDoc))
	require.NoError(t, err)
	require.Empty(t, issues)
	require.NotNil(t, c)

	assert.Equal(t, "web-release-1.2", c.ID())
	assert.Equal(t, "web", c.Domain)
	require.Len(t, c.Sections, 1)
	assert.Equal(t, `env == "prod"`, c.Sections[0].Condition)
	require.Len(t, c.Sections[0].Items, 2)
	assert.True(t, c.Sections[0].Items[1].EvidenceRequired)
	assert.Len(t, c.Sections[0].Items[1].Matrix, 2)
	assert.True(t, c.Variables["env"].Required)
}

func TestParse_InvalidYAML(t *testing.T) {
	c, issues, err := newTestLoader(t).Parse([]byte("name: [unclosed"))
	require.NoError(t, err)
	assert.Nil(t, c)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "invalid YAML")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "version: \"1\"\ndomain: web\nsections:\n  - name: S\n    items:\n      - id: a\n        check: c\n"},
		{"empty sections", "name: X\nversion: \"1\"\ndomain: web\nsections: []\n"},
		{"item missing check", "name: X\nversion: \"1\"\ndomain: web\nsections:\n  - name: S\n    items:\n      - id: a\n"},
		{"bad severity", "name: X\nversion: \"1\"\ndomain: web\nsections:\n  - name: S\n    items:\n      - id: a\n        check: c\n        severity: enormous\n"},
	}
	l := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, issues, err := l.Parse([]byte(tt.doc))
			require.NoError(t, err)
			assert.Nil(t, c)
			assert.NotEmpty(t, issues)
		})
	}
}

func TestParse_DuplicateItemIDs(t *testing.T) {
	doc := `
name: Dup
version: "1"
domain: web
sections:
  - name: A
    items:
      - id: same
        check: first
  - name: B
    items:
      - id: same
        check: second
`
	c, issues, err := newTestLoader(t).Parse([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, c)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "duplicate item id")
	assert.Contains(t, issues[0].Path, "sections[1].items[0]")
}

func TestParse_DefaultOutsideOptions(t *testing.T) {
	doc := `
name: Vars
version: "1"
domain: web
variables:
  env:
    prompt: env
    options: [dev, prod]
    default: staging
sections:
  - name: S
    items:
      - id: a
        check: c
`
	c, issues, err := newTestLoader(t).Parse([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, c)
	require.Len(t, issues, 1)
	assert.Equal(t, "variables.env.default", issues[0].Path)
}

func TestLoad_UsesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o644))

	store, err := cache.New(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	l, err := New(store)
	require.NoError(t, err)

	first, issues, err := l.Load(path)
	require.NoError(t, err)
	require.Empty(t, issues)
	assert.Equal(t, 1, store.Stats().ChecklistEntries)

	second, issues, err := l.Load(path)
	require.NoError(t, err)
	require.Empty(t, issues)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, first.Sections, second.Sections)
}

func TestLoad_CachesValidationFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domain: web"), 0o644))

	store, err := cache.New(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	l, err := New(store)
	require.NoError(t, err)

	c, issues, err := l.Load(path)
	require.NoError(t, err)
	assert.Nil(t, c)
	require.NotEmpty(t, issues)

	c, cached, err := l.Load(path)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, issues, cached)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := newTestLoader(t).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read checklist")
}
