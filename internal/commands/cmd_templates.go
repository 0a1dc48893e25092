package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tally/internal/printer"
	"github.com/colonyops/tally/internal/templates"
)

type TemplatesCmd struct {
	flags *Flags
}

// NewTemplatesCmd creates a new templates command
func NewTemplatesCmd(flags *Flags) *TemplatesCmd {
	return &TemplatesCmd{flags: flags}
}

// Register adds the templates command to the application
func (cmd *TemplatesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "templates",
		Usage:  "List the bundled checklist templates",
		Action: cmd.list,
	})

	return app
}

func (cmd *TemplatesCmd) list(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	p.Title("Bundled templates")
	for _, key := range templates.Keys() {
		data, err := templates.Read(key)
		if err != nil {
			return err
		}
		list, issues, err := cmd.flags.Loader.Parse(data)
		if err != nil {
			return err
		}
		if len(issues) > 0 {
			return fmt.Errorf("template %q is not a valid checklist", key)
		}
		p.Plain(fmt.Sprintf("  %-16s %s (%s, %d items)",
			key, list.Name, list.Domain, len(list.ItemsByID())))
	}
	p.Plain("")
	p.Plain("Scaffold one with: tally init --template <name>")
	return nil
}
