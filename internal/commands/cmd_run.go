package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/loader"
	"github.com/colonyops/tally/internal/core/session"
	"github.com/colonyops/tally/internal/core/vars"
	"github.com/colonyops/tally/internal/printer"
)

type RunCmd struct {
	flags *Flags

	// flags
	varFlags      []string
	answersPath   string
	noInteractive bool
	resumeID      string
	resume        bool
	dryRun        bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags) *RunCmd {
	return &RunCmd{flags: flags}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run a checklist interactively or from an answers file",
		UsageText: "tally run <checklist.yaml> [--var k=v]... [--resume] [--answers file]",
		Description: `Expands the checklist with the provided variables and walks the resulting
items one at a time. Progress is saved after every answer, so an interrupted
run can be picked up with --resume.

With --answers, items are answered from a YAML file instead of prompts. Keys
are item ids; matrix slots can be targeted with "id@key=value". Items without
an answer default to skip.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "var",
				Usage:       "set a checklist variable as key=value (repeatable)",
				Destination: &cmd.varFlags,
			},
			&cli.StringFlag{
				Name:        "answers",
				Aliases:     []string{"a"},
				Usage:       "answer items from a YAML file instead of prompting",
				Destination: &cmd.answersPath,
			},
			&cli.BoolFlag{
				Name:        "no-interactive",
				Usage:       "never prompt; requires --answers or defaults everything to skip",
				Destination: &cmd.noInteractive,
			},
			&cli.BoolFlag{
				Name:        "resume",
				Aliases:     []string{"r"},
				Usage:       "resume the most recent in-progress session for this checklist",
				Destination: &cmd.resume,
			},
			&cli.StringFlag{
				Name:        "session",
				Usage:       "resume a specific session id (implies --resume)",
				Destination: &cmd.resumeID,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "print the expanded items without starting a session",
				Destination: &cmd.dryRun,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one checklist file, got %d arguments", c.Args().Len())
	}
	path := c.Args().First()

	list, issues, err := cmd.flags.Loader.Load(path)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return reportIssues(p, path, issues)
	}

	interactive := !cmd.noInteractive && term.IsTerminal(int(os.Stdin.Fd()))
	eng := engine.New(cmd.flags.Store, expansionCache(cmd.flags), log.Logger)

	if cmd.resume || cmd.resumeID != "" {
		return cmd.runResumed(ctx, p, eng, list, interactive)
	}

	variables, err := cmd.resolveVariables(list, interactive)
	if err != nil {
		return err
	}

	if cmd.dryRun {
		return printExpansion(p, list, variables)
	}

	if err := eng.Start(list, variables, path); err != nil {
		return err
	}
	if err := eng.Save(); err != nil {
		return err
	}
	return cmd.walk(ctx, p, eng, interactive)
}

func (cmd *RunCmd) runResumed(ctx context.Context, p *printer.Printer, eng *engine.Engine, list *checklist.Checklist, interactive bool) error {
	sess := cmd.findSession(list)
	if sess == nil {
		return fmt.Errorf("no in-progress session found for %s", list.ID())
	}

	if err := eng.Resume(list, sess); err != nil {
		if errors.Is(err, engine.ErrChecklistMismatch) || errors.Is(err, engine.ErrSessionMismatch) {
			p.Error("Cannot resume: the checklist changed since this session started",
				"Start a fresh run, or restore the original checklist file.")
		}
		return err
	}

	state, err := eng.State()
	if err != nil {
		return err
	}
	p.Info(fmt.Sprintf("Resuming session %s (%d/%d answered)",
		sess.ID, len(sess.Responses), len(state.Items)))

	return cmd.walk(ctx, p, eng, interactive)
}

func (cmd *RunCmd) findSession(list *checklist.Checklist) *session.Session {
	if cmd.resumeID != "" {
		return cmd.flags.Store.Load(cmd.resumeID)
	}
	return cmd.flags.Store.FindLatestInProgress(list.ID())
}

// resolveVariables merges --var flags with interactive prompts for anything
// the flags left unset, then validates the lot against the declarations.
func (cmd *RunCmd) resolveVariables(list *checklist.Checklist, interactive bool) (vars.Vars, error) {
	raw := make(map[string]any)
	for _, pair := range cmd.varFlags {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		raw[key] = value
	}

	if interactive {
		unset := make(map[string]struct{})
		for name := range list.Variables {
			if _, ok := raw[name]; !ok {
				unset[name] = struct{}{}
			}
		}
		if len(unset) > 0 {
			prompted, err := promptVariables(filterSpecs(list.Variables, unset))
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil, fmt.Errorf("aborted")
				}
				return nil, err
			}
			for name, value := range prompted {
				raw[name] = value
			}
		}
	}

	return vars.Resolve(list.Variables, raw)
}

// walk drives the answer loop until the sequence is exhausted or the user
// saves and quits.
func (cmd *RunCmd) walk(ctx context.Context, p *printer.Printer, eng *engine.Engine, interactive bool) error {
	if !interactive {
		return cmd.walkBatch(p, eng)
	}

	for {
		item := eng.CurrentItem()
		if item == nil {
			break
		}
		state, err := eng.State()
		if err != nil {
			return err
		}

		answer, err := promptItem(*item, state.CurrentIndex+1, len(state.Items), state.CurrentIndex > 0)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				p.Warn("Interrupted; progress saved", "Resume with: tally run "+state.Session.ChecklistPath+" --resume")
				return eng.Save()
			}
			return err
		}

		if answer.Action == actionQuit {
			if err := eng.Save(); err != nil {
				return err
			}
			p.Info("Progress saved", "Resume with --resume")
			return nil
		}
		if err := applyAnswer(eng, *item, answer); err != nil {
			return err
		}
	}

	return cmd.finish(p, eng)
}

// applyAnswer mutates engine state for a back or record action and persists
// the result. Going back saves immediately too, so the discarded answer
// cannot survive an interrupt before the item is re-answered.
func applyAnswer(eng *engine.Engine, item engine.ResolvedItem, answer itemAnswer) error {
	if answer.Action == actionBack {
		if err := eng.GoBack(); err != nil {
			return err
		}
		return eng.Save()
	}
	if err := eng.RecordResponse(item.Item, answer.Result, answer.Notes, answer.Evidence, item.MatrixContext); err != nil {
		return err
	}
	return eng.Save()
}

// walkBatch answers every remaining item from the answers file, defaulting
// unanswered items to skip.
func (cmd *RunCmd) walkBatch(p *printer.Printer, eng *engine.Engine) error {
	answers, err := loadAnswers(cmd.answersPath)
	if err != nil {
		return err
	}

	for {
		item := eng.CurrentItem()
		if item == nil {
			break
		}
		answer := answers.lookup(*item)
		if err := eng.RecordResponse(item.Item, answer.Result, answer.Notes, answer.Evidence, item.MatrixContext); err != nil {
			return err
		}
	}

	return cmd.finish(p, eng)
}

func (cmd *RunCmd) finish(p *printer.Printer, eng *engine.Engine) error {
	if err := eng.Complete(); err != nil {
		return err
	}
	if err := eng.Save(); err != nil {
		return err
	}

	state, err := eng.State()
	if err != nil {
		return err
	}
	summary := tallyResults(state.Session.Responses)
	p.Success(fmt.Sprintf("Session %s completed", state.Session.ID),
		fmt.Sprintf("pass: %d  fail: %d  skip: %d  na: %d",
			summary[session.ResultPass], summary[session.ResultFail],
			summary[session.ResultSkip], summary[session.ResultNotApplicable]),
		"Generate a report with: tally report "+state.Session.ID)

	if summary[session.ResultFail] > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func filterSpecs(specs map[string]checklist.Variable, keep map[string]struct{}) map[string]checklist.Variable {
	filtered := make(map[string]checklist.Variable, len(keep))
	for name := range keep {
		filtered[name] = specs[name]
	}
	return filtered
}

func tallyResults(responses []session.Response) map[session.Result]int {
	counts := make(map[session.Result]int, 4)
	for _, r := range responses {
		counts[r.Result]++
	}
	return counts
}

func printExpansion(p *printer.Printer, list *checklist.Checklist, variables vars.Vars) error {
	items, err := engine.Expand(list, variables)
	if err != nil {
		return err
	}

	p.Title(fmt.Sprintf("%s — %d items", list.Name, len(items)))
	section := ""
	for _, item := range items {
		if item.SectionName != section {
			section = item.SectionName
			p.Plain("\n" + section)
		}
		p.Plain("  - " + item.DisplayCheck())
	}
	return nil
}

func reportIssues(p *printer.Printer, path string, issues []loader.Issue) error {
	p.Error(fmt.Sprintf("%s is not a valid checklist", path))
	for _, issue := range issues {
		p.Plain("  " + issue.String())
	}
	return cli.Exit("", 1)
}
