package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zk/qjunit/internal/config"
	"github.com/zk/qjunit/internal/logger"
	"github.com/zk/qjunit/internal/orchestrator"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qjunit [flags] <events.jsonl>...",
		Short: "Convert QUnit-style runner events into JUnit XML reports",
		Long: `qjunit reads the JSONL event stream written by a browser test runner adapter
(spawn, moduleStart, testStart, log, testDone, moduleDone, done) and writes one
JUnit XML document per test source to <dest>/TEST-<name>.xml.

A source that never reports done, or stays silent for longer than --timeout in
watch mode, gets a report with a single timeout error.

Settings are read from .qjunit.yaml (or --config); flags override the file.

Examples:
  qjunit events.jsonl                   # Convert a finished event file
  qjunit -d reports a.jsonl b.jsonl     # Several streams, processed in parallel
  qjunit -w --timeout 1m events.jsonl   # Follow a file the runner is still writing`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runCore(cmd.Context(), cmd.Flags(), args, cmd.OutOrStdout())
			return err
		},
	}

	config.RegisterFlags(rootCmd.Flags())

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// runCore resolves configuration and converts every event file (testable)
func runCore(ctx context.Context, flags *pflag.FlagSet, sources []string, out io.Writer) (int, error) {
	configPath, err := flags.GetString(config.FlagConfig)
	if err != nil {
		return 1, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return 1, err
	}
	if err := cfg.ApplyFlags(flags); err != nil {
		return 1, err
	}
	if err := cfg.Validate(); err != nil {
		return 1, fmt.Errorf("invalid configuration: %w", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return 1, err
	}

	fileLogger, err := logger.NewFileLogger("")
	if err != nil {
		return 1, fmt.Errorf("failed to create debug logger: %w", err)
	}
	defer func() {
		if err := fileLogger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close debug log: %v\n", err)
		}
	}()
	if cfg.LogLevel != "" {
		fileLogger.SetLevel(cfg.LogLevel)
	}
	fileLogger.Info("qjunit %s: dest=%s timeout=%s watch=%t", version, cfg.Dest, cfg.Timeout, cfg.Watch)

	orch, err := orchestrator.New(orchestrator.Config{
		Sources:     sources,
		Dest:        cfg.Dest,
		Policy:      policy,
		Timeout:     cfg.Timeout,
		Watch:       cfg.Watch,
		MetricsFile: cfg.MetricsFile,
		Logger:      fileLogger,
		Output:      out,
	})
	if err != nil {
		return 1, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(ctx); err != nil {
		return orch.GetExitCode(), err
	}
	return orch.GetExitCode(), nil
}
