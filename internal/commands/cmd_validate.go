package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tally/internal/printer"
)

type ValidateCmd struct {
	flags *Flags
}

// NewValidateCmd creates a new validate command
func NewValidateCmd(flags *Flags) *ValidateCmd {
	return &ValidateCmd{flags: flags}
}

// Register adds the validate command to the application
func (cmd *ValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "validate",
		Usage:     "Validate checklist files without running them",
		UsageText: "tally validate <checklist.yaml>...",
		Action:    cmd.run,
	})

	return app
}

func (cmd *ValidateCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if c.Args().Len() == 0 {
		return fmt.Errorf("expected at least one checklist file")
	}

	failed := 0
	for _, path := range c.Args().Slice() {
		list, issues, err := cmd.flags.Loader.Load(path)
		if err != nil {
			p.Error(path, err.Error())
			failed++
			continue
		}
		if len(issues) > 0 {
			p.Error(fmt.Sprintf("%s (%d issues)", path, len(issues)))
			for _, issue := range issues {
				p.Plain("  " + issue.String())
			}
			failed++
			continue
		}

		digest, err := list.Digest()
		if err != nil {
			return err
		}
		p.Success(path, fmt.Sprintf("%s, digest %.12s", list.ID(), digest))
	}

	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
