package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/rum-replay/internal/config"
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/output"
	"github.com/mj1618/rum-replay/internal/server"
)

var diffCmd = &cobra.Command{
	Use:   "diff <before> <after>",
	Short: "Print the incremental mutation between two UI tree fixtures",
	Long: `Walk both fixtures into flattened wireframes and print the removes, adds
and updates that turn the first snapshot into the second. The mutation is
null when the snapshots are identical.

Examples:
  rum-replay diff before.yaml after.yaml
  rum-replay diff before.yaml after.yaml --privacy allow --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("privacy", "", "Override the privacy level: allow, mask")
}

func runDiff(cmd *cobra.Command, args []string) error {
	c := cfg
	if privacy, _ := cmd.Flags().GetString("privacy"); privacy != "" {
		c.Privacy = config.Privacy(privacy)
	}
	p, err := newPipeline(c, logger, metrics)
	if err != nil {
		return err
	}
	defer p.Close()

	producer := p.producer()
	var snapshots [2][]model.Wireframe
	for i, source := range args {
		win, err := openWindow(source)
		if err != nil {
			return err
		}
		snapshots[i], err = producer.Wireframes(cmd.Context(), p.loop, win, c.ImageWaitTimeout)
		if err != nil {
			return err
		}
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, server.DiffResult{
		Before:   len(snapshots[0]),
		After:    len(snapshots[1]),
		Mutation: model.ResolveMutations(snapshots[0], snapshots[1]),
	})
}
