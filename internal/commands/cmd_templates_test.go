package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tally/internal/core/loader"
	"github.com/colonyops/tally/internal/printer"
	"github.com/colonyops/tally/internal/templates"
)

func TestTemplatesCmd_ListsEveryTemplate(t *testing.T) {
	l, err := loader.New(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := printer.WithCtx(context.Background(), printer.New(&buf))

	cmd := NewTemplatesCmd(&Flags{Loader: l})
	require.NoError(t, cmd.list(ctx, nil))

	for _, key := range templates.Keys() {
		assert.Contains(t, buf.String(), key)
	}
}
