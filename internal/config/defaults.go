package config

const (
	defaultConfigPath          = "~/.config/sdportal/config.toml"
	defaultBaseURL             = "https://bridge.crynux.ai"
	defaultTimeoutMS           = 3000
	defaultBaseModelType       = "sd_1_5"
	defaultImageWidth          = 768
	defaultImageHeight         = 1024
	defaultSteps               = 40
	defaultCFG                 = 5
	defaultNumImages           = 6
	defaultAdapterWeight       = 0.8
	defaultDataDir             = "~/.local/share/sdportal"
	defaultOutputDir           = "~/Pictures/sdportal"
	defaultLogDir              = "~/.local/share/sdportal/logs"
	defaultPoseDir             = "~/.local/share/sdportal/poses"
	defaultPollIntervalSeconds = 5
	defaultNotifyTimeoutSecs   = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			BaseURL:   defaultBaseURL,
			TimeoutMS: defaultTimeoutMS,
		},
		Task: Task{
			BaseModelType:           defaultBaseModelType,
			ImageWidth:              defaultImageWidth,
			ImageHeight:             defaultImageHeight,
			Steps:                   defaultSteps,
			CFG:                     defaultCFG,
			NumImages:               defaultNumImages,
			LoraWeight:              defaultAdapterWeight,
			ControlNetWeight:        defaultAdapterWeight,
			DiscardStaleDerivations: true,
		},
		Assets: Assets{
			PoseDir: defaultPoseDir,
		},
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Watch: Watch{
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
