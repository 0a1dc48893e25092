package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tally/internal/printer"
)

type CacheCmd struct {
	flags *Flags
}

// NewCacheCmd creates a new cache command
func NewCacheCmd(flags *Flags) *CacheCmd {
	return &CacheCmd{flags: flags}
}

// Register adds the cache command group to the application
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the checklist cache",
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show cache location and entry counts",
				Action: cmd.info,
			},
			{
				Name:   "clean",
				Usage:  "Remove every cache entry",
				Action: cmd.clean,
			},
			{
				Name:   "prune",
				Usage:  "Remove entries older than the configured max age",
				Action: cmd.prune,
			},
		},
	})

	return app
}

func (cmd *CacheCmd) info(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	if cmd.flags.Cache == nil {
		p.Warn("Caching is disabled in the config")
		return nil
	}

	stats := cmd.flags.Cache.Stats()
	p.Title("Cache")
	p.Plain("Location:   " + cmd.flags.Cache.Dir())
	p.Plain(fmt.Sprintf("Checklists: %d entries", stats.ChecklistEntries))
	p.Plain(fmt.Sprintf("Expansions: %d entries", stats.ExpansionEntries))
	p.Plain(fmt.Sprintf("Size:       %.1f KiB", float64(stats.TotalBytes)/1024))
	return nil
}

func (cmd *CacheCmd) clean(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	if cmd.flags.Cache == nil {
		p.Warn("Caching is disabled in the config")
		return nil
	}

	before := cmd.flags.Cache.Stats()
	cmd.flags.Cache.Clean()
	p.Success(fmt.Sprintf("Removed %d cache entries",
		before.ChecklistEntries+before.ExpansionEntries))
	return nil
}

func (cmd *CacheCmd) prune(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	if cmd.flags.Cache == nil {
		p.Warn("Caching is disabled in the config")
		return nil
	}

	maxAge := time.Duration(cmd.flags.Config.Cache.MaxAgeDays) * 24 * time.Hour
	before := cmd.flags.Cache.Stats()
	cmd.flags.Cache.Prune(maxAge)
	after := cmd.flags.Cache.Stats()

	removed := (before.ChecklistEntries + before.ExpansionEntries) -
		(after.ChecklistEntries + after.ExpansionEntries)
	p.Success(fmt.Sprintf("Pruned %d entries older than %d days",
		removed, cmd.flags.Config.Cache.MaxAgeDays))
	return nil
}
