package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mediasort/internal/config"
	"mediasort/internal/logging"
	"mediasort/internal/pipeline"
)

type runFlags struct {
	source     string
	dest       string
	logLevel   string
	dryRun     bool
	move       bool
	jsonOut    bool
	noProgress bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sort the source tree into the destination library",
		Long: `Scan the source directory, read capture dates, and copy (or move) every
photo and video into the dated destination layout.

Runs are dry runs unless --dry-run=false is given or run.dry_run is false in
the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := ctx.loadConfig(flags.overrides(cmd))
			if err != nil {
				return err
			}

			showProgress := !flags.jsonOut && !flags.noProgress && isTerminal(cmd.ErrOrStderr())
			var logOpts []logging.TerminalOption
			if showProgress {
				logOpts = append(logOpts, logging.QuietTerminal())
			}
			logger, err := logging.NewFromConfig(cfg, logOpts...)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []pipeline.Option
			var progress *progressObserver
			if showProgress {
				progress = newProgressObserver(cmd.ErrOrStderr())
				opts = append(opts, pipeline.WithObserver(progress))
			}

			report, runErr := pipeline.New(cfg, logger, opts...).Run(runCtx)
			if progress != nil {
				progress.Finish()
			}

			if flags.jsonOut {
				if err := writeJSON(cmd, newRunSummary(report, runErr)); err != nil {
					return err
				}
			} else {
				printRunSummary(cmd.OutOrStdout(), cfg, report)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", "", "Directory to scan (overrides paths.source_dir)")
	cmd.Flags().StringVar(&flags.dest, "dest", "", "Library root (overrides paths.destination_dir)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", true, "Report what would happen without touching files")
	cmd.Flags().BoolVar(&flags.move, "move", false, "Move files instead of copying them")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the run summary as JSON")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress spinner")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

// overrides applies only the flags the user actually set, so config file
// values survive an omitted flag.
func (f *runFlags) overrides(cmd *cobra.Command) config.Override {
	return func(c *config.Config) {
		if s := strings.TrimSpace(f.source); s != "" {
			c.Paths.SourceDir = s
		}
		if d := strings.TrimSpace(f.dest); d != "" {
			c.Paths.DestinationDir = d
		}
		if cmd.Flags().Changed("dry-run") {
			c.Run.DryRun = f.dryRun
		}
		if cmd.Flags().Changed("move") {
			c.Run.Move = f.move
		}
		if l := strings.TrimSpace(f.logLevel); l != "" {
			c.Logging.Level = l
		}
	}
}
