package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/tally/internal/printer"
	"github.com/colonyops/tally/internal/templates"
)

type InitCmd struct {
	flags *Flags

	// flags
	template string
	output   string
	force    bool
}

// NewInitCmd creates a new init command
func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

// Register adds the init command to the application
func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Create a checklist file from a bundled template",
		UsageText: "tally init [--template " + strings.Join(templates.Keys(), "|") + "] [--output file]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "template",
				Aliases:     []string{"t"},
				Usage:       "template key (prompts when omitted)",
				Destination: &cmd.template,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file (defaults to <template>.yaml in the current directory)",
				Destination: &cmd.output,
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "overwrite the output file if it exists",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *InitCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	key := cmd.template
	if key == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--template is required when not running in a terminal")
		}
		if err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("Checklist template").
				Options(huh.NewOptions(templates.Keys()...)...).
				Value(&key),
		)).Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}

	data, err := templates.Read(key)
	if err != nil {
		return err
	}

	out := cmd.output
	if out == "" {
		out = templates.Filename(key)
	}
	if !cmd.force {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", out)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write checklist: %w", err)
	}

	p.Success("Checklist created", out, "Run it with: tally run "+out)
	return nil
}
