package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framed/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
	onPath  bool
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.FramesDir = filepath.Join(base, "frames")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "catalog.toml")
	cfgVal.Pregen.Length = 2
	cfgVal.Pregen.MaxPending = 1
	cfgVal.Pregen.MaxRetries = 2
	cfgVal.Cleanup.Interval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithQualityGate enables the standard-deviation quality gate on the test config.
func WithQualityGate(minStdDev float64, maxRejects int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Frames.MinStdDev = minStdDev
		b.cfg.Frames.MaxRejects = maxRejects
	}
}

// WithPregen overrides queue sizing on the test config.
func WithPregen(length, maxPending, maxRetries int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pregen.Length = length
		b.cfg.Pregen.MaxPending = maxPending
		b.cfg.Pregen.MaxRetries = maxRetries
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default framed external
// binaries are stubbed. Each stub exits 0 without output.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "magick"}
		}
		for _, name := range names {
			b.installStub(name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithScriptedBinary installs a stub executable with the given shell script
// body and prepends its directory to PATH. Tests use this when a stub needs
// to create output files or print tool output.
func WithScriptedBinary(name, script string) ConfigOption {
	return func(b *configBuilder) {
		b.installStub(name, script)
	}
}

func (b *configBuilder) installStub(name, script string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
	if b.onPath {
		return
	}
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	b.onPath = true
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
