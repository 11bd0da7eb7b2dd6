package config

const (
	defaultConfigPath           = "~/.config/signflow/config.toml"
	defaultStateDir             = "~/.local/share/signflow"
	defaultLogDir               = "~/.local/share/signflow/logs"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultSpokenLanguage       = "zh"
	defaultSignedLanguage       = "csl"
	defaultPivotLanguage        = "en"
	defaultNormalizationURL     = "https://sign.mt/api/text-normalization"
	defaultDescriptionURL       = "https://sign.mt/api/signwriting-description"
	defaultPivotURL             = "https://translate.googleapis.com/translate_a/single"
	defaultPivotClient          = "gtx"
	defaultSignWritingURL       = "https://sign.mt/api/spoken-text-to-signwriting"
	defaultPoseURL              = "https://us-central1-sign-mt.cloudfunctions.net/spoken_text_to_signed_pose"
	defaultTimeoutSeconds       = 15
	defaultRetryAttempts        = 3
	defaultRequestsPerSecond    = 10
	defaultProbeIntervalSeconds = 30
	defaultDetectorEngine       = "lingua"
	defaultMinRelativeDistance  = 0.0
	defaultHistoryRetentionDays = 30
	defaultLogRetentionDays     = 14
	defaultNotifyTimeoutSeconds = 10
	defaultNotifyMinLevel       = "warn"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

var defaultPivotSources = []string{"zh"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Translation: Translation{
			DefaultSpokenLanguage:   defaultSpokenLanguage,
			DefaultSignedLanguage:   defaultSignedLanguage,
			PivotLanguage:           defaultPivotLanguage,
			PivotSources:            append([]string(nil), defaultPivotSources...),
			LocaleAwareSegmentation: true,
			NotationMetricsAutoload: true,
		},
		Endpoints: Endpoints{
			NormalizationURL: defaultNormalizationURL,
			DescriptionURL:   defaultDescriptionURL,
			PivotURL:         defaultPivotURL,
			PivotClient:      defaultPivotClient,
			SignWritingURL:   defaultSignWritingURL,
			PoseURL:          defaultPoseURL,
		},
		Network: Network{
			TimeoutSeconds:       defaultTimeoutSeconds,
			RetryAttempts:        defaultRetryAttempts,
			RequestsPerSecond:    defaultRequestsPerSecond,
			ProbeIntervalSeconds: defaultProbeIntervalSeconds,
		},
		Detector: Detector{
			Engine:              defaultDetectorEngine,
			MinRelativeDistance: defaultMinRelativeDistance,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			MinLevel:              defaultNotifyMinLevel,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
