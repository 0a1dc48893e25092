package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Web Release", "web-release"},
		{"punctuation", "API (v2) Checks!", "api-v2-checks"},
		{"leading trailing", "  --hello--  ", "hello"},
		{"empty", "", "checklist"},
		{"only symbols", "!!!", "checklist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestChecklist_ID(t *testing.T) {
	c := &Checklist{Name: "Web Release Checklist", Version: "1.2"}
	assert.Equal(t, "web-release-checklist-1.2", c.ID())
}

func TestChecklist_ItemsByID(t *testing.T) {
	c := &Checklist{
		Sections: []Section{
			{Name: "A", Items: []Item{{ID: "a-1", Check: "first"}}},
			{Name: "B", Items: []Item{{ID: "b-1", Check: "second"}, {ID: "b-2", Check: "third"}}},
		},
	}

	index := c.ItemsByID()
	require.Len(t, index, 3)
	assert.Equal(t, "second", index["b-1"].Check)
}

func testChecklist() *Checklist {
	return &Checklist{
		Name:    "Web Release",
		Version: "1.0",
		Domain:  "web",
		Metadata: Metadata{
			Author: "qa",
			Tags:   []string{"release"},
		},
		Variables: map[string]Variable{
			"env": {Prompt: "Environment", Required: true, Options: []string{"dev", "prod"}},
		},
		Sections: []Section{
			{
				Name: "Security",
				Items: []Item{
					{ID: "tls-check", Check: "TLS is enforced", Severity: SeverityHigh},
					{
						ID:       "browser-check",
						Check:    "Page renders",
						Severity: SeverityMedium,
						Matrix: []map[string]string{
							{"browser": "chrome"},
							{"browser": "firefox"},
						},
					},
				},
			},
		},
	}
}

func TestDigest_Stable(t *testing.T) {
	first, err := testChecklist().Digest()
	require.NoError(t, err)

	// Repeated calls on the same instance hit the cache.
	c := testChecklist()
	d1, err := c.Digest()
	require.NoError(t, err)
	d2, err := c.Digest()
	require.NoError(t, err)

	assert.Equal(t, first, d1)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestDigest_SensitiveToContent(t *testing.T) {
	base, err := testChecklist().Digest()
	require.NoError(t, err)

	edited := testChecklist()
	edited.Sections[0].Items[0].Check = "TLS is enforced everywhere"
	changed, err := edited.Digest()
	require.NoError(t, err)

	assert.NotEqual(t, base, changed)
}

func TestDigest_SensitiveToMatrixEntries(t *testing.T) {
	base, err := testChecklist().Digest()
	require.NoError(t, err)

	edited := testChecklist()
	edited.Sections[0].Items[1].Matrix = append(
		edited.Sections[0].Items[1].Matrix,
		map[string]string{"browser": "safari"},
	)
	changed, err := edited.Digest()
	require.NoError(t, err)

	assert.NotEqual(t, base, changed)
}
