package config

const (
	defaultConfigPath           = "~/.config/mediasort/config.toml"
	defaultLogDir               = "~/.local/share/mediasort/logs"
	defaultQueueCapacity        = 1024
	defaultShutdownGraceSeconds = 60
	defaultSentinelEpoch        = "1990-01-01T00:00:00Z"
	defaultDirectoryTemplate    = "%Y/%Y_%m"
	defaultFileTemplate         = "%Y%m%d_%H%M%S"
	defaultNoCaptureDateDir     = "noExif"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNoCaptureDatePolicy  = NoCaptureDateFallbackModified
	defaultDuplicatePolicy      = DuplicateIncrease
	envSourceDir                = "MEDIASORT_SOURCE_DIR"
	envDestinationDir           = "MEDIASORT_DESTINATION_DIR"
	maxQueueCapacity            = 1 << 20
	maxShutdownGraceSeconds     = 3600
)

// DefaultExtensions lists the image and video extensions handled without any
// extra configuration.
var DefaultExtensions = []string{
	"heic", "heif", "jpg", "jpeg", "png",
	"mp4", "avi", "3gp", "mov", "wmv", "mts",
}

// Default returns a Config populated with repository defaults. Runs are
// dry-run copies unless the config or CLI says otherwise.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Run: Run{
			DryRun:               true,
			Move:                 false,
			QueueCapacity:        defaultQueueCapacity,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Media: Media{
			SkipHidden:    true,
			SentinelEpoch: defaultSentinelEpoch,
		},
		Layout: Layout{
			DirectoryTemplate: defaultDirectoryTemplate,
			FileTemplate:      defaultFileTemplate,
		},
		Policy: Policy{
			NoCaptureDate:    defaultNoCaptureDatePolicy,
			NoCaptureDateDir: defaultNoCaptureDateDir,
			Duplicate:        defaultDuplicatePolicy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
