package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mj1618/rum-replay/internal/config"
	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/output"
	_ "github.com/mj1618/rum-replay/internal/platform/fixture"
	"github.com/mj1618/rum-replay/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rum-replay",
	Short: "Simulate RUM sessions and record session replay snapshots",
	Long: `A RUM and session replay toolkit: tracks sessions and views from timed
events, walks UI tree fixtures into replay wireframes, diffs snapshots into
incremental mutations and streams the resulting records.`,
	SilenceUsage: true,
}

// Settings shared by every subcommand, resolved before each run.
var (
	cfg     config.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json")
	rootCmd.PersistentFlags().String("config", "", "YAML config file (RUM_* environment variables override it)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")

		path, _ := rootCmd.PersistentFlags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		loaded = config.FromEnv(loaded)
		if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
			loaded.LogLevel = level
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logger = observability.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
		metrics = observability.NewMetrics()
		return nil
	}
}
