package config

const (
	defaultStateDir    = "~/.local/share/framed/state"
	defaultFramesDir   = "~/.local/share/framed/frames"
	defaultLogDir      = "~/.local/share/framed/logs"
	defaultCatalogPath = "~/.config/framed/catalog.toml"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"

	defaultExtension      = "jpg"
	defaultIDNamespace    = "f3c2efc8-7f3a-4f6b-9d36-5cbe0de1f1a4"
	defaultMaxRejects     = 5
	defaultExtractTimeout = 60
	defaultStatsTimeout   = 30
	defaultServedTTL      = 3600

	defaultPregenLength     = 10
	defaultPregenMaxPending = 2
	defaultPregenMaxRetries = 3

	defaultCleanupInterval     = 300
	defaultRunHistoryThreshold = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			FramesDir:   defaultFramesDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Frames: Frames{
			Extension:       defaultExtension,
			IDNamespace:     defaultIDNamespace,
			MinStdDev:       0,
			MaxRejects:      defaultMaxRejects,
			AcceptOnExhaust: true,
			ExtractTimeout:  defaultExtractTimeout,
			StatsTimeout:    defaultStatsTimeout,
			ServedTTL:       defaultServedTTL,
		},
		Pregen: Pregen{
			Length:     defaultPregenLength,
			MaxPending: defaultPregenMaxPending,
			MaxRetries: defaultPregenMaxRetries,
		},
		Cleanup: Cleanup{
			Interval:            defaultCleanupInterval,
			RunHistoryThreshold: defaultRunHistoryThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
