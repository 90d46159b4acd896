package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mj1618/rum-replay/internal/bitmap"
	"github.com/mj1618/rum-replay/internal/clock"
	"github.com/mj1618/rum-replay/internal/config"
	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/platform"
	"github.com/mj1618/rum-replay/internal/recorder"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
	"github.com/mj1618/rum-replay/internal/rum"
	"github.com/mj1618/rum-replay/internal/uithread"
)

// uiQueueSize bounds the work pending on the UI loop.
const uiQueueSize = 64

// pipeline owns the UI loop and the bitmap workers shared by every capture.
type pipeline struct {
	loop      *uithread.Loop
	bitmaps   *bitmap.Serializer
	traversal *recorder.Traversal
	privacy   mapper.Privacy
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

func newPipeline(c config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*pipeline, error) {
	privacy, err := mapper.ParsePrivacy(string(c.Privacy))
	if err != nil {
		return nil, err
	}
	loop := uithread.New(uiQueueSize)
	ser, err := bitmap.New(bitmap.Options{
		MaxBytes:     c.MaxBitmapBytes,
		CacheEntries: c.BitmapCacheEntries,
		CacheBytes:   c.BitmapCacheBytes,
		Workers:      c.ImageWorkers,
		QueueSize:    c.ImageQueueSize,
		Loop:         loop,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		loop.Close()
		return nil, err
	}
	return &pipeline{
		loop:      loop,
		bitmaps:   ser,
		traversal: recorder.NewTraversal(mapper.Default(ser), ser),
		privacy:   privacy,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

func (p *pipeline) producer() *recorder.SnapshotProducer {
	return recorder.NewSnapshotProducer(p.traversal, p.privacy, p.logger, p.metrics)
}

// Close stops the bitmap workers before the loop they draw on.
func (p *pipeline) Close() {
	p.bitmaps.Close()
	p.loop.Close()
}

// sessionOptions maps the config onto the session state machine.
func sessionOptions(c config.Config, logger zerolog.Logger, metrics *observability.Metrics) rum.SessionOptions {
	return rum.SessionOptions{
		SampleRate:  c.SampleRate,
		Inactivity:  c.SessionInactivity,
		MaxDuration: c.SessionMaxDuration,
		Logger:      logger,
		Metrics:     metrics,

		ProcessStartNanos: clock.ProcessStartNanos(),
		Listener: rum.SessionListenerFunc(func(sessionID string, discarded bool) {
			logger.Info().Str("session_id", sessionID).Bool("discarded", discarded).Msg("session started")
		}),
	}
}

// openWindow reads one window from a UI source.
func openWindow(source string) (*model.Window, error) {
	provider, err := platform.NewProvider(source)
	if err != nil {
		return nil, err
	}
	win, err := provider.Reader.ReadWindow()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return win, nil
}
