package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"framed/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "framed", "state")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.FramesDir != filepath.Join(tempHome, ".local", "share", "framed", "frames") {
		t.Fatalf("unexpected frames dir: %q", cfg.Paths.FramesDir)
	}
	if cfg.Frames.Extension != "jpg" {
		t.Fatalf("unexpected extension: %q", cfg.Frames.Extension)
	}
	if cfg.QualityGateEnabled() {
		t.Fatal("expected quality gate disabled by default")
	}
	if !cfg.Frames.AcceptOnExhaust {
		t.Fatal("expected accept_on_exhaust enabled by default")
	}
	if cfg.Pregen.Length != config.Default().Pregen.Length {
		t.Fatalf("unexpected pregen length: %d", cfg.Pregen.Length)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.FramesDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "framed.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"
frames_dir = "` + filepath.Join(dir, "frames") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
catalog_path = "` + filepath.Join(dir, "catalog.toml") + `"

[frames]
extension = ".PNG"
min_std_dev = 12.5

[pregen]
length = 4
max_pending = 1
max_retries = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%q", exists, resolved)
	}
	if cfg.Frames.Extension != "png" {
		t.Fatalf("expected normalized extension png, got %q", cfg.Frames.Extension)
	}
	if !cfg.QualityGateEnabled() {
		t.Fatal("expected quality gate enabled")
	}
	if cfg.Pregen.Length != 4 || cfg.Pregen.MaxPending != 1 || cfg.Pregen.MaxRetries != 2 {
		t.Fatalf("unexpected pregen settings: %+v", cfg.Pregen)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad namespace", func(c *config.Config) { c.Frames.IDNamespace = "not-a-uuid" }},
		{"negative std dev", func(c *config.Config) { c.Frames.MinStdDev = -1 }},
		{"zero length", func(c *config.Config) { c.Pregen.Length = 0 }},
		{"zero max pending", func(c *config.Config) { c.Pregen.MaxPending = 0 }},
		{"zero interval", func(c *config.Config) { c.Cleanup.Interval = 0 }},
		{"zero threshold", func(c *config.Config) { c.Cleanup.RunHistoryThreshold = 0 }},
		{"bad format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected sample content")
	}
}
