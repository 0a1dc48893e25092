package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

type LsCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List sessions for a checklist",
		UsageText: "tally ls <checklist.yaml> [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one checklist file, got %d arguments", c.Args().Len())
	}
	path := c.Args().First()

	list, issues, err := cmd.flags.Loader.Load(path)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("%s is not a valid checklist (run 'tally validate %s')", path, path)
	}

	summaries := cmd.flags.Store.List(list.ID())
	out := c.Root().Writer

	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		for _, summary := range summaries {
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
		}
		return nil
	}

	if len(summaries) == 0 {
		fmt.Fprintf(os.Stderr, "No sessions found for %s\n", list.ID())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tRESPONSES")
	for _, summary := range summaries {
		responses := "-"
		if sess := cmd.flags.Store.Load(summary.ID); sess != nil {
			responses = fmt.Sprintf("%d", len(sess.Responses))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			summary.ID, summary.Status, summary.StartedAt.Format("2006-01-02 15:04"), responses)
	}
	return w.Flush()
}
