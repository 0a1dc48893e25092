package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tally/internal/printer"
	"github.com/colonyops/tally/internal/templates"
)

type InfoCmd struct {
	flags *Flags
}

// NewInfoCmd creates a new info command
func NewInfoCmd(flags *Flags) *InfoCmd {
	return &InfoCmd{flags: flags}
}

// Register adds the info command to the application
func (cmd *InfoCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "info",
		Usage:  "Show resolved paths and configuration",
		Action: cmd.info,
	})

	return app
}

func (cmd *InfoCmd) info(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	cacheLine := "disabled"
	if cmd.flags.Cache != nil {
		cacheLine = cmd.flags.Cache.Dir()
	}

	p.Title("tally")
	p.Plain("Version:       " + c.Root().Version)
	p.Plain("Config file:   " + cmd.flags.ConfigPath)
	p.Plain("Output dir:    " + cmd.flags.Config.OutputDir)
	p.Plain("Sessions:      " + cmd.flags.Store.Dir())
	p.Plain("Cache:         " + cacheLine)
	p.Plain("Log file:      " + cmd.flags.LogFile)
	p.Plain("Report format: " + cmd.flags.Config.Report.Format)
	p.Plain(fmt.Sprintf("Templates:     %s", strings.Join(templates.Keys(), ", ")))
	return nil
}
