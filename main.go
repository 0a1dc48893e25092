package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tally/internal/commands"
	"github.com/colonyops/tally/internal/core/cache"
	"github.com/colonyops/tally/internal/core/config"
	"github.com/colonyops/tally/internal/core/loader"
	"github.com/colonyops/tally/internal/printer"
	"github.com/colonyops/tally/internal/store/jsonfile"
	"github.com/colonyops/tally/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "tally",
		Usage:     "Run YAML checklists as guided, resumable sessions",
		UsageText: "tally [global options] command [command options]",
		Description: `Tally turns a YAML checklist into a step-by-step run: conditions and
matrices expand into a concrete item sequence, every answer is saved as you
go, and finished sessions render into JSON, Markdown, or HTML reports.

Run 'tally init' to scaffold a checklist from a bundled template, then
'tally run <file>' to work through it.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TALLY_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("TALLY_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TALLY_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "output-dir",
				Usage:       "directory for sessions and reports",
				Sources:     cli.EnvVars("TALLY_OUTPUT_DIR"),
				Destination: &flags.OutputDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.OutputDir, commands.DefaultOutputDir())
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			if !cfg.Cache.Disabled {
				dir := cfg.Cache.Dir
				if dir == "" {
					dir = cache.DefaultDir()
				}
				store, err := cache.New(dir)
				if err != nil {
					// The cache is an accelerator; run without it.
					log.Warn().Err(err).Msg("cache unavailable, continuing without it")
				} else {
					flags.Cache = store
				}
			}

			flags.Loader, err = loader.New(flags.Cache)
			if err != nil {
				return ctx, err
			}

			flags.Store, err = jsonfile.NewSessionStore(filepath.Join(cfg.OutputDir, "sessions"))
			if err != nil {
				return ctx, fmt.Errorf("open session store: %w", err)
			}

			return printer.WithCtx(ctx, printer.New(os.Stdout)), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewRunCmd(flags).Register(app)
	app = commands.NewReportCmd(flags).Register(app)
	app = commands.NewValidateCmd(flags).Register(app)
	app = commands.NewInitCmd(flags).Register(app)
	app = commands.NewLsCmd(flags).Register(app)
	app = commands.NewCacheCmd(flags).Register(app)
	app = commands.NewTemplatesCmd(flags).Register(app)
	app = commands.NewInfoCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		if msg := runErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		exitCode = 1
		if coder, ok := runErr.(cli.ExitCoder); ok {
			exitCode = coder.ExitCode()
		}
	}

	os.Exit(exitCode)
}
