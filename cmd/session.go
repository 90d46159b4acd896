package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/output"
	"github.com/mj1618/rum-replay/internal/rum"
)

var sessionCmd = &cobra.Command{
	Use:   "session <script>",
	Short: "Replay a script of timed RUM events on a simulated clock",
	Long: `Apply every event of a YAML script to a fresh RUM scope tree, advancing a
simulated clock to each event offset, then print the written RUM events and
the context after each step.

Script format:
  events:
    - at: 0s
      type: start_view
      key: home
    - at: 2s
      type: start_action
      action: tap
      name: checkout
    - at: 20m
      type: add_error
      message: after a long pause

Examples:
  rum-replay session checkout.yaml
  rum-replay session checkout.yaml --sample-rate 50 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().Float64("sample-rate", -1, "Override the sample rate in [0,100]")
	sessionCmd.Flags().Bool("contexts", false, "Include the context after each step")
}

// SessionResult is the output of the session command.
type SessionResult struct {
	Events   []rum.Event   `yaml:"events"             json:"events"`
	Contexts []rum.Context `yaml:"contexts,omitempty" json:"contexts,omitempty"`
	Final    rum.Context   `yaml:"final"              json:"final"`
}

func runSession(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	script, err := rum.ParseScript(data)
	if err != nil {
		return err
	}

	c := cfg
	if rate, _ := cmd.Flags().GetFloat64("sample-rate"); rate >= 0 {
		if rate > 100 {
			return fmt.Errorf("--sample-rate %v outside [0,100]", rate)
		}
		c.SampleRate = rate
	}
	withContexts, _ := cmd.Flags().GetBool("contexts")

	clk := clock.NewFake(time.Now().UnixMilli())
	opts := sessionOptions(c, logger, metrics)
	opts.Clock = clk
	app := rum.NewApplicationScope(c.ApplicationID, opts)

	result := SessionResult{Events: []rum.Event{}}
	contexts, err := script.Run(app, clk, rum.WriterFunc(func(e rum.Event) {
		result.Events = append(result.Events, e)
	}))
	if err != nil {
		return err
	}
	if withContexts {
		result.Contexts = contexts
	}
	result.Final = app.ActiveContext()
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, result)
}
