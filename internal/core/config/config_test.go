package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("", "/tmp/out", "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "markdown", cfg.Report.Format)
	assert.Equal(t, 30, cfg.Cache.MaxAgeDays)
	assert.False(t, cfg.Cache.Disabled)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	content := `
output_dir: /srv/checklists
report:
  format: html
cache:
  disabled: true
  max_age_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, "", "")
	require.NoError(t, err)

	assert.Equal(t, "/srv/checklists", cfg.OutputDir)
	assert.Equal(t, "html", cfg.Report.Format)
	assert.True(t, cfg.Cache.Disabled)
	assert.Equal(t, 7, cfg.Cache.MaxAgeDays)
}

func TestLoad_FlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: /from/file"), 0o644))

	cfg, err := Load(path, "/from/flag", "")
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.OutputDir)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "/tmp/out", "")
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Report.Format)
}

func TestLoad_FallbackOutputDir(t *testing.T) {
	cfg, err := Load("", "", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", cfg.OutputDir)
}

func TestLoad_RejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report:\n  format: pdf"), 0o644))

	_, err := Load(path, "/tmp/out", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.format")
}

func TestLoad_RequiresOutputDir(t *testing.T) {
	_, err := Load("", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_dir")
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: [broken"), 0o644))

	_, err := Load(path, "/tmp/out", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}
