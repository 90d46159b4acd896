// Package config loads SDK settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Privacy selects how recorded content is masked.
type Privacy string

const (
	PrivacyAllow Privacy = "allow"
	PrivacyMask  Privacy = "mask"
)

type Config struct {
	ApplicationID        string        `yaml:"application_id"`
	SampleRate           float64       `yaml:"sample_rate"`
	SessionInactivity    time.Duration `yaml:"session_inactivity"`
	SessionMaxDuration   time.Duration `yaml:"session_max_duration"`
	Privacy              Privacy       `yaml:"privacy"`
	FullSnapshotInterval time.Duration `yaml:"full_snapshot_interval"`
	MaxBitmapBytes       int           `yaml:"max_bitmap_bytes"`
	BitmapCacheEntries   int           `yaml:"bitmap_cache_entries"`
	BitmapCacheBytes     int           `yaml:"bitmap_cache_bytes"`
	ImageWorkers         int           `yaml:"image_workers"`
	ImageQueueSize       int           `yaml:"image_queue_size"`
	RecordQueueSize      int           `yaml:"record_queue_size"`
	ImageWaitTimeout     time.Duration `yaml:"image_wait_timeout"`
	EventQueueSize       int           `yaml:"event_queue_size"`
	LogLevel             string        `yaml:"log_level"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ApplicationID:        "00000000-0000-0000-0000-000000000000",
		SampleRate:           100,
		SessionInactivity:    15 * time.Minute,
		SessionMaxDuration:   4 * time.Hour,
		Privacy:              PrivacyMask,
		FullSnapshotInterval: 3 * time.Second,
		MaxBitmapBytes:       15000,
		BitmapCacheEntries:   256,
		BitmapCacheBytes:     4 << 20,
		ImageWorkers:         2,
		ImageQueueSize:       64,
		RecordQueueSize:      32,
		ImageWaitTimeout:     2 * time.Second,
		EventQueueSize:       256,
		LogLevel:             "info",
	}
}

// Load reads a YAML file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays RUM_* environment variables on cfg.
func FromEnv(cfg Config) Config {
	cfg.ApplicationID = getEnv("RUM_APPLICATION_ID", cfg.ApplicationID)
	cfg.SampleRate = getEnvFloat("RUM_SAMPLE_RATE", cfg.SampleRate)
	cfg.SessionInactivity = getEnvDuration("RUM_SESSION_INACTIVITY", cfg.SessionInactivity)
	cfg.SessionMaxDuration = getEnvDuration("RUM_SESSION_MAX_DURATION", cfg.SessionMaxDuration)
	cfg.Privacy = Privacy(strings.ToLower(getEnv("RUM_PRIVACY", string(cfg.Privacy))))
	cfg.FullSnapshotInterval = getEnvDuration("RUM_FULL_SNAPSHOT_INTERVAL", cfg.FullSnapshotInterval)
	cfg.MaxBitmapBytes = getEnvInt("RUM_MAX_BITMAP_BYTES", cfg.MaxBitmapBytes)
	cfg.ImageWorkers = getEnvInt("RUM_IMAGE_WORKERS", cfg.ImageWorkers)
	cfg.LogLevel = getEnv("RUM_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

// Validate checks ranges and returns an error wrapping ErrInvalid.
func (c Config) Validate() error {
	switch {
	case c.SampleRate < 0 || c.SampleRate > 100:
		return fmt.Errorf("%w: sample_rate %v outside [0,100]", ErrInvalid, c.SampleRate)
	case c.SessionInactivity <= 0:
		return fmt.Errorf("%w: session_inactivity must be positive", ErrInvalid)
	case c.SessionMaxDuration <= 0:
		return fmt.Errorf("%w: session_max_duration must be positive", ErrInvalid)
	case c.Privacy != PrivacyAllow && c.Privacy != PrivacyMask:
		return fmt.Errorf("%w: privacy %q (use allow or mask)", ErrInvalid, c.Privacy)
	case c.FullSnapshotInterval <= 0:
		return fmt.Errorf("%w: full_snapshot_interval must be positive", ErrInvalid)
	case c.MaxBitmapBytes <= 0:
		return fmt.Errorf("%w: max_bitmap_bytes must be positive", ErrInvalid)
	case c.ImageWorkers <= 0 || c.ImageQueueSize <= 0 || c.RecordQueueSize <= 0 || c.EventQueueSize <= 0:
		return fmt.Errorf("%w: worker and queue sizes must be positive", ErrInvalid)
	case c.BitmapCacheEntries <= 0 || c.BitmapCacheBytes <= 0:
		return fmt.Errorf("%w: bitmap cache bounds must be positive", ErrInvalid)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
