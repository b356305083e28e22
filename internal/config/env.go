package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides lists the environment variables that take precedence over
// the config file.
type envOverrides struct {
	Token                 string `env:"TOKEN"`
	DiscordToken          string `env:"DISCORD_TOKEN"`
	GuildID               string `env:"GUILD_ID"`
	AutoTranslateCategory string `env:"AUTO_TRANSLATE_CATEGORY"`
	TelegramToken         string `env:"TELEGRAM_TOKEN"`
	GoogleAPIKey          string `env:"GOOGLE_TRANSLATE_API_KEY"`
	GoogleCredentials     string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	LogLevel              string `env:"TRANSBOT_LOG_LEVEL"`
	OTLPEndpoint          string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the process environment. Variables already set win.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv copies environment overrides onto cfg. Setting a channel token
// also enables that channel.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	token := o.DiscordToken
	if token == "" {
		token = o.Token
	}
	if token != "" {
		cfg.Channels.Discord.Token = token
		cfg.Channels.Discord.Enabled = true
	}
	if o.GuildID != "" {
		cfg.Channels.Discord.GuildID = o.GuildID
	}
	if o.AutoTranslateCategory != "" {
		cfg.Relay.AutoTranslateCategories = SplitList(o.AutoTranslateCategory)
	}
	if o.TelegramToken != "" {
		cfg.Channels.Telegram.Token = o.TelegramToken
		cfg.Channels.Telegram.Enabled = true
	}

	if o.GoogleAPIKey != "" || o.GoogleCredentials != "" {
		pc := cfg.Translator.Providers["google"]
		if o.GoogleAPIKey != "" {
			pc.APIKey = o.GoogleAPIKey
		}
		if o.GoogleCredentials != "" {
			pc.CredentialsFile = o.GoogleCredentials
		}
		setProvider(cfg, "google", pc)
	}
	if o.OpenAIAPIKey != "" {
		pc := cfg.Translator.Providers["openai"]
		pc.APIKey = o.OpenAIAPIKey
		setProvider(cfg, "openai", pc)
	}

	if o.LogLevel != "" {
		cfg.General.LogLevel = strings.ToLower(o.LogLevel)
	}
	if o.OTLPEndpoint != "" {
		cfg.Tracing.Endpoint = o.OTLPEndpoint
	}
	return nil
}

func setProvider(cfg *Config, name string, pc ProviderConfig) {
	if cfg.Translator.Providers == nil {
		cfg.Translator.Providers = make(map[string]ProviderConfig)
	}
	cfg.Translator.Providers[name] = pc
}

// SplitList splits a comma and/or whitespace separated list, dropping
// empty entries.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
