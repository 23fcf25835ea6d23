package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	FramesDir   string `toml:"frames_dir"`
	LogDir      string `toml:"log_dir"`
	CatalogPath string `toml:"catalog_path"`
}

// Frames contains configuration for frame generation and the quality gate.
type Frames struct {
	// Extension is the image file extension without the leading dot.
	Extension string `toml:"extension"`
	// IDNamespace is the UUID namespace frame ids are derived from.
	IDNamespace string `toml:"id_namespace"`
	// MinStdDev rejects extracted frames whose pixel standard deviation falls
	// below this threshold. Zero disables the quality gate.
	MinStdDev float64 `toml:"min_std_dev"`
	// MaxRejects caps how many times a generation attempt re-seeks after a
	// quality-gate rejection.
	MaxRejects int `toml:"max_rejects"`
	// AcceptOnExhaust keeps the last candidate when MaxRejects is used up.
	// When false, exhaustion fails the generation attempt instead.
	AcceptOnExhaust bool `toml:"accept_on_exhaust"`
	// ExtractTimeout bounds a single ffmpeg extraction, in seconds.
	ExtractTimeout int `toml:"extract_timeout"`
	// StatsTimeout bounds a single image-statistics call, in seconds.
	StatsTimeout int `toml:"stats_timeout"`
	// ServedTTL is how long served frames and answers stay resident before
	// the cleanup sweep may reap them, in seconds.
	ServedTTL int `toml:"served_ttl"`
}

// Pregen contains configuration for the pregeneration queue.
type Pregen struct {
	Length     int `toml:"length"`
	MaxPending int `toml:"max_pending"`
	MaxRetries int `toml:"max_retries"`
}

// Cleanup contains configuration for the periodic cleanup scheduler.
type Cleanup struct {
	// Interval between sweeps, in seconds.
	Interval int `toml:"interval"`
	// RunHistoryThreshold is the minimum interaction count at which an
	// expired run is archived instead of dropped.
	RunHistoryThreshold int `toml:"run_history_threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for framed.
//
// Configuration sections by subsystem:
//   - Paths: state/frames/log directories and the episode catalog file
//   - Frames: generation, id derivation, and quality-gate settings
//   - Pregen: pregeneration queue sizing and retry policy
//   - Cleanup: sweep interval and run archival threshold
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Frames  Frames  `toml:"frames"`
	Pregen  Pregen  `toml:"pregen"`
	Cleanup Cleanup `toml:"cleanup"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/framed/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/framed/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("framed.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. A frames
// directory that cannot be created for a reason other than "already exists"
// aborts startup.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.FramesDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the frame extraction executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// MagickBinary returns the image statistics executable name.
func (c *Config) MagickBinary() string {
	return "magick"
}

// QualityGateEnabled reports whether extracted frames are checked against a
// minimum standard deviation.
func (c *Config) QualityGateEnabled() bool {
	return c.Frames.MinStdDev > 0
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
