package config

const (
	defaultAPITimeoutSeconds     = 15
	defaultAPIRequestsPerSecond  = 4.0
	defaultAssetsBackend         = "filesystem"
	defaultAssetsDir             = "~/.local/share/keepsake/assets"
	defaultAssetsBaseURL         = "https://assets.keepsake.local"
	defaultDraftsDir             = "~/.local/share/keepsake/drafts"
	defaultSlideTimeoutMillis    = 5000
	defaultVideoGraceSeconds     = 2
	defaultViewerBind            = "127.0.0.1:8123"
	defaultShareQRSize           = 256
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogDir                = "~/.local/share/keepsake/logs"
	defaultS3Region              = "us-east-1"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			TimeoutSeconds:    defaultAPITimeoutSeconds,
			RequestsPerSecond: defaultAPIRequestsPerSecond,
		},
		Assets: Assets{
			Backend: defaultAssetsBackend,
			Dir:     defaultAssetsDir,
			BaseURL: defaultAssetsBaseURL,
			S3: S3{
				Region: defaultS3Region,
			},
		},
		Drafts: Drafts{
			Dir: defaultDraftsDir,
		},
		Playback: Playback{
			SlideTimeoutMillis: defaultSlideTimeoutMillis,
			VideoGraceSeconds:  defaultVideoGraceSeconds,
		},
		Viewer: Viewer{
			Bind: defaultViewerBind,
		},
		Share: Share{
			QRSize: defaultShareQRSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
