package config

const (
	defaultConfigPath            = "~/.config/ngffconverter/config.toml"
	projectConfigName            = "ngffconverter.toml"
	defaultOutputDir             = "~/ngff"
	defaultWorkingDir            = "~/.local/share/ngffconverter/work"
	defaultLogDir                = "~/.local/share/ngffconverter/logs"
	defaultBioformats2Raw        = "bioformats2raw"
	defaultRaw2OmeTiff           = "raw2ometiff"
	defaultInterruptGraceSeconds = 30
	defaultFormat                = "OME-NGFF"
	defaultExpansionFactor       = 2.0
	defaultStaleStagingHours     = 72
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultNtfyTimeoutSeconds    = 10
	defaultNotifyMinWorkflows    = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			WorkingDir: defaultWorkingDir,
			LogDir:     defaultLogDir,
		},
		Converters: Converters{
			Bioformats2Raw:        defaultBioformats2Raw,
			Raw2OmeTiff:           defaultRaw2OmeTiff,
			InterruptGraceSeconds: defaultInterruptGraceSeconds,
		},
		Workflow: Workflow{
			DefaultFormat:     defaultFormat,
			SpaceCheck:        true,
			ExpansionFactor:   defaultExpansionFactor,
			StaleStagingHours: defaultStaleStagingHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			NotifyFailures:        true,
			MinWorkflows:          defaultNotifyMinWorkflows,
		},
	}
}
