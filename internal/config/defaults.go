package config

const (
	defaultLogDir        = "~/.local/share/tabset/logs"
	defaultCatalogPath   = "~/.local/share/tabset/catalog.db"
	defaultLockDir       = "~/.local/share/tabset/locks"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultSampleRate    = 44100
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
			LockDir:     defaultLockDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Audio: Audio{
			SampleRate: defaultSampleRate,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
