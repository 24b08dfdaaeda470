package config

const (
	defaultConfigPath         = "~/.config/qmunlock/config.toml"
	defaultInputDir           = "~/Music/VipSongsDownload"
	defaultOutputDir          = "~/Music/qmunlock"
	defaultLogDir             = "~/.local/share/qmunlock/logs"
	defaultStateDir           = "~/.local/share/qmunlock"
	defaultProcessName        = "qqmusic"
	defaultScriptPath         = "~/.config/qmunlock/decrypt.js"
	defaultWatchSettleSeconds = 2
	defaultPauseOnExit        = PauseAuto
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Pause modes for interactive.pause_on_exit.
const (
	PauseAuto   = "auto"
	PauseAlways = "always"
	PauseNever  = "never"
)

// DefaultExtensions returns the built-in extension table.
func DefaultExtensions() []Extension {
	return []Extension{
		{Source: "mflac", Target: "flac"},
		{Source: "mgg", Target: "ogg"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Target: Target{
			ProcessName: defaultProcessName,
		},
		Instrument: Instrument{
			ScriptPath: defaultScriptPath,
		},
		Extensions: DefaultExtensions(),
		Watch: Watch{
			SettleSeconds: defaultWatchSettleSeconds,
		},
		History: History{
			Enabled: true,
		},
		Interactive: Interactive{
			PauseOnExit: defaultPauseOnExit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
