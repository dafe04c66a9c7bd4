package config

const (
	defaultLogDir         = "~/.local/share/sceneforge/logs"
	defaultOutputDir      = "~/.local/share/sceneforge/videos"
	defaultManimBinary    = "manim"
	defaultTimeoutSeconds = 600
	defaultQuality        = "medium"
	defaultAPIBind        = "127.0.0.1:7823"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Workspace: Workspace{
			Root:   "", // resolved to the system temp dir during normalize
			Unique: true,
		},
		Render: Render{
			ManimBinary:    defaultManimBinary,
			TimeoutSeconds: defaultTimeoutSeconds,
			DefaultQuality: defaultQuality,
			OutputDir:      defaultOutputDir,
		},
		Paths: Paths{
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
