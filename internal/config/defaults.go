package config

// DefaultDetectorLanguages is the language set the detector is built from
// unless detector.languages overrides it.
var DefaultDetectorLanguages = []string{"en", "zh", "vi", "ms", "tl", "fr", "es", "id", "ja"}

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Relay: RelayConfig{
			TargetLanguage:      "en",
			ConfidenceThreshold: ConfidenceThreshold,
			Concurrency:         8,
		},
		Detector: DetectorConfig{
			Provider:  "lingua",
			Languages: append([]string(nil), DefaultDetectorLanguages...),
		},
		Translator: TranslatorConfig{
			Provider: "google",
			Providers: map[string]ProviderConfig{
				"google": {
					TimeoutSeconds: 30,
				},
				"openai": {
					APIBase:        "https://api.openai.com/v1",
					Model:          "gpt-4o-mini",
					TimeoutSeconds: 60,
				},
			},
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Enabled: false,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "transbot",
		},
	}
}
