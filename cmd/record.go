package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/config"
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/output"
	"github.com/mj1618/rum-replay/internal/platform"
	"github.com/mj1618/rum-replay/internal/processor"
	"github.com/mj1618/rum-replay/internal/recorder"
	"github.com/mj1618/rum-replay/internal/rum"
)

var recordCmd = &cobra.Command{
	Use:   "record <fixture>",
	Short: "Record session replay snapshots of a UI tree fixture",
	Long: `Start a RUM view, capture the UI tree fixture and stream the enriched
replay records: the first capture of a view is a full snapshot, later
captures are incremental mutations.

With --watch the fixture is captured again every time the file changes,
until interrupted. Each --tap is replayed after the captures as a tap
action and a pair of touch records.

Examples:
  rum-replay record screen.yaml
  rum-replay record screen.yaml --count 5 --interval 500ms --format json
  rum-replay record screen.yaml --watch --privacy allow
  rum-replay record screen.yaml --screen 800x400 --events
  rum-replay record screen.yaml --tap 120,340 --tap 200,90`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().Int("count", 1, "Number of captures")
	recordCmd.Flags().Duration("interval", time.Second, "Delay between captures")
	recordCmd.Flags().Bool("watch", false, "Capture on every fixture change until interrupted")
	recordCmd.Flags().String("view", "main", "Key of the RUM view the captures belong to")
	recordCmd.Flags().String("view-name", "", "Display name of the RUM view (default: the key)")
	recordCmd.Flags().String("privacy", "", "Override the privacy level: allow, mask")
	recordCmd.Flags().String("screen", "", "Override the fixture screen as WIDTHxHEIGHT")
	recordCmd.Flags().Bool("events", false, "Also stream the RUM events of the session")
	recordCmd.Flags().StringArray("tap", nil, "Replay a tap at X,Y after the captures (repeatable)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	interval, _ := cmd.Flags().GetDuration("interval")
	watch, _ := cmd.Flags().GetBool("watch")
	viewKey, _ := cmd.Flags().GetString("view")
	viewName, _ := cmd.Flags().GetString("view-name")
	privacy, _ := cmd.Flags().GetString("privacy")
	screen, _ := cmd.Flags().GetString("screen")
	withEvents, _ := cmd.Flags().GetBool("events")
	tapArgs, _ := cmd.Flags().GetStringArray("tap")

	if count < 1 && !watch {
		return fmt.Errorf("--count must be at least 1")
	}
	taps, err := parseTaps(tapArgs)
	if err != nil {
		return err
	}
	c := cfg
	if privacy != "" {
		c.Privacy = config.Privacy(privacy)
	}

	provider, err := platform.NewProvider(args[0])
	if err != nil {
		return err
	}
	reader := provider.Reader
	if screen != "" {
		bounds, orientation, err := platform.ParseScreen(screen)
		if err != nil {
			return err
		}
		reader = platform.OverrideScreen(reader, bounds, orientation)
	}
	if watch && provider.Watcher == nil {
		return fmt.Errorf("%s cannot be watched", args[0])
	}

	stream, err := output.NewStream(cmd.OutOrStdout(), output.OutputFormat)
	if err != nil {
		return err
	}
	defer stream.Close()

	p, err := newPipeline(c, logger, metrics)
	if err != nil {
		return err
	}
	defer p.Close()

	var events rum.Writer = rum.NoOpWriter
	if withEvents {
		events = output.EventWriter{Stream: stream}
	}
	app := rum.NewApplicationScope(c.ApplicationID, sessionOptions(c, logger, metrics))
	monitor := rum.NewMonitor(app, events, rum.MonitorOptions{
		QueueSize: c.EventQueueSize,
		Logger:    logger,
		Metrics:   metrics,
	})
	defer monitor.Close()

	proc := processor.New(output.RecordWriter{Stream: stream}, processor.RecordCallbackFunc(func(viewID string) {
		logger.Debug().Str("view_id", viewID).Msg("replay data sent for view")
	}), processor.Options{
		FullSnapshotInterval: c.FullSnapshotInterval,
		Logger:               logger,
		Metrics:              metrics,
	})
	rec, err := recorder.New(recorder.Options{
		Source:           reader,
		Context:          monitor,
		Producer:         p.producer(),
		Processor:        proc,
		Loop:             p.loop,
		QueueSize:        c.RecordQueueSize,
		ImageWaitTimeout: c.ImageWaitTimeout,
		Logger:           logger,
		Metrics:          metrics,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	monitor.StartView(viewKey, viewName)
	if err := monitor.Sync(ctx); err != nil {
		return err
	}
	rec.Start(ctx)

	if watch {
		err = watchAndCapture(ctx, rec, provider.Watcher)
	} else {
		err = captureN(ctx, rec, count, interval)
	}
	if err == nil {
		err = replayTaps(monitor, rec, taps)
	}

	monitor.StopView(viewKey)
	if stopErr := rec.Stop(); err == nil {
		err = stopErr
	}
	if syncErr := monitor.Sync(context.Background()); err == nil {
		err = syncErr
	}
	if err != nil {
		return err
	}
	return stream.Err()
}

func captureN(ctx context.Context, rec *recorder.Recorder, count int, interval time.Duration) error {
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
		if err := rec.Capture(ctx); err != nil {
			return err
		}
	}
	return nil
}

// watchAndCapture captures once, then after every change until ctx is done.
// Failed captures are logged so a half-written fixture does not end the run.
func watchAndCapture(ctx context.Context, rec *recorder.Recorder, w platform.Watcher) error {
	stop := make(chan struct{})
	defer close(stop)
	changes, err := w.Watch(stop)
	if err != nil {
		return err
	}
	if err := rec.Capture(ctx); err != nil {
		logger.Warn().Err(err).Msg("capture failed")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := rec.Capture(ctx); err != nil {
				logger.Warn().Err(err).Msg("capture failed")
			}
		}
	}
}

type tap struct{ x, y int64 }

func parseTaps(args []string) ([]tap, error) {
	taps := make([]tap, 0, len(args))
	for _, arg := range args {
		xs, ys, ok := strings.Cut(arg, ",")
		x, errX := strconv.ParseInt(strings.TrimSpace(xs), 10, 64)
		y, errY := strconv.ParseInt(strings.TrimSpace(ys), 10, 64)
		if !ok || errX != nil || errY != nil {
			return nil, fmt.Errorf("invalid --tap %q, expected X,Y", arg)
		}
		taps = append(taps, tap{x: x, y: y})
	}
	return taps, nil
}

// replayTaps reports each tap as a RUM action and records its touch down
// and up under the current replay context.
func replayTaps(monitor *rum.Monitor, rec *recorder.Recorder, taps []tap) error {
	var clk clock.System
	for _, t := range taps {
		monitor.AddAction(rum.ActionTap, fmt.Sprintf("tap %d,%d", t.x, t.y))
		now := clk.NowMillis()
		err := rec.RecordTouch([]model.Record{
			model.NewPointerRecord(now, model.PointerDown, 0, t.x, t.y),
			model.NewPointerRecord(now, model.PointerUp, 0, t.x, t.y),
		})
		if err != nil {
			return fmt.Errorf("record tap: %w", err)
		}
	}
	return nil
}
