package config

const (
	defaultBaseURL                   = "https://music-api.gdstudio.xyz/api.php"
	defaultSource                    = "netease"
	defaultSearchCount               = 5
	defaultMaxRequests               = 60
	defaultRateWindowSeconds         = 300
	defaultRetries                   = 3
	defaultTimeoutSeconds            = 30
	defaultInteractiveTimeoutSeconds = 10
	defaultQuality                   = 999
	defaultPicSize                   = 500
	defaultOutputDir                 = "~/Music/uptone"
	defaultStateDir                  = "~/.local/share/uptone"
	defaultLogDir                    = "~/.local/share/uptone/logs"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		API: API{
			BaseURL:                   defaultBaseURL,
			Source:                    defaultSource,
			SearchCount:               defaultSearchCount,
			MaxRequests:               defaultMaxRequests,
			RateWindowSeconds:         defaultRateWindowSeconds,
			Retries:                   defaultRetries,
			TimeoutSeconds:            defaultTimeoutSeconds,
			InteractiveTimeoutSeconds: defaultInteractiveTimeoutSeconds,
		},
		Match: Match{
			MatchArtist: false,
		},
		Download: Download{
			Quality:  defaultQuality,
			Lyrics:   true,
			CoverArt: true,
			PicSize:  defaultPicSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
