package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validatePregen(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFrames() error {
	if _, err := uuid.Parse(c.Frames.IDNamespace); err != nil {
		return fmt.Errorf("frames.id_namespace must be a valid UUID: %w", err)
	}
	if c.Frames.MinStdDev < 0 {
		return errors.New("frames.min_std_dev must not be negative")
	}
	if c.Frames.MaxRejects < 0 {
		return errors.New("frames.max_rejects must not be negative")
	}
	return ensurePositiveMap(map[string]int{
		"frames.extract_timeout": c.Frames.ExtractTimeout,
		"frames.stats_timeout":   c.Frames.StatsTimeout,
		"frames.served_ttl":      c.Frames.ServedTTL,
	})
}

func (c *Config) validatePregen() error {
	return ensurePositiveMap(map[string]int{
		"pregen.length":      c.Pregen.Length,
		"pregen.max_pending": c.Pregen.MaxPending,
		"pregen.max_retries": c.Pregen.MaxRetries,
	})
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.RunHistoryThreshold < 1 {
		return errors.New("cleanup.run_history_threshold must be at least 1")
	}
	return ensurePositiveMap(map[string]int{
		"cleanup.interval": c.Cleanup.Interval,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
