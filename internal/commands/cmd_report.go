package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/report"
	"github.com/colonyops/tally/internal/core/session"
	"github.com/colonyops/tally/internal/printer"
)

type ReportCmd struct {
	flags *Flags

	// flags
	format        string
	outputPath    string
	checklistPath string
	toStdout      bool
	force         bool
}

// NewReportCmd creates a new report command
func NewReportCmd(flags *Flags) *ReportCmd {
	return &ReportCmd{flags: flags}
}

// Register adds the report command to the application
func (cmd *ReportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "report",
		Usage:     "Generate a report for a session",
		UsageText: "tally report <session-id | session file> [--format json|markdown|html]",
		Description: `Joins a stored session with its checklist and renders a report. The session
argument is a session id or a path to a session-<id>.json file.

The checklist is re-read from the path recorded on the session; if the file
content no longer matches what the session ran against, generation fails
rather than producing a misleading report.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "report format: json, markdown, or html (default from config)",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file path (default <output-dir>/report-<session>.<ext>)",
				Destination: &cmd.outputPath,
			},
			&cli.StringFlag{
				Name:        "checklist",
				Usage:       "checklist file (overrides the path recorded on the session)",
				Destination: &cmd.checklistPath,
			},
			&cli.BoolFlag{
				Name:        "stdout",
				Usage:       "write the report to stdout instead of a file",
				Destination: &cmd.toStdout,
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

func (cmd *ReportCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected a session id or session file, got %d arguments", c.Args().Len())
	}

	sess, err := cmd.loadSession(c.Args().First())
	if err != nil {
		return err
	}

	list, err := cmd.loadChecklist(p, sess)
	if err != nil {
		return err
	}

	// Old sessions may predate digest tracking; bind them on first report so
	// later runs get the same protection.
	if wrote, err := engine.EnsureSessionDigest(sess, list); err != nil {
		return err
	} else if wrote {
		if _, err := cmd.flags.Store.Save(sess); err != nil {
			return fmt.Errorf("backfill session digest: %w", err)
		}
	}
	if _, err := engine.ValidateSessionDigest(sess, list); err != nil {
		if errors.Is(err, engine.ErrChecklistMismatch) {
			p.Error("The checklist changed since this session ran",
				"Point --checklist at the version the session was answered against.")
		}
		return err
	}

	format := cmd.format
	if format == "" {
		format = cmd.flags.Config.Report.Format
	}
	reporter, err := report.ForFormat(format)
	if err != nil {
		return err
	}

	out, err := reporter.Generate(list, sess)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if cmd.toStdout {
		_, err := c.Root().Writer.Write(out)
		return err
	}

	path := cmd.outputPath
	if path == "" {
		path = filepath.Join(cmd.flags.Config.OutputDir, "report-"+sess.ID+reporter.Extension())
	}
	if !cmd.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	p.Success("Report written", path)
	return nil
}

// loadSession accepts a bare session id or a path to a session file.
func (cmd *ReportCmd) loadSession(arg string) (*session.Session, error) {
	if strings.ContainsAny(arg, "/\\") || strings.HasSuffix(arg, ".json") {
		return cmd.flags.Store.LoadFromPath(arg)
	}
	if sess := cmd.flags.Store.Load(arg); sess != nil {
		return sess, nil
	}
	return nil, fmt.Errorf("no session %q in %s", arg, cmd.flags.Store.Dir())
}

func (cmd *ReportCmd) loadChecklist(p *printer.Printer, sess *session.Session) (*checklist.Checklist, error) {
	path := cmd.checklistPath
	if path == "" {
		path = sess.ChecklistPath
	}
	if path == "" {
		return nil, fmt.Errorf("session %s records no checklist path; pass --checklist", sess.ID)
	}

	list, issues, err := cmd.flags.Loader.Load(path)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, reportIssues(p, path, issues)
	}
	return list, nil
}
