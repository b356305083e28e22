package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"transbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for transbot.
type Config struct {
	General    GeneralConfig    `json:"general" yaml:"general"`
	Relay      RelayConfig      `json:"relay" yaml:"relay"`
	Detector   DetectorConfig   `json:"detector" yaml:"detector"`
	Translator TranslatorConfig `json:"translator" yaml:"translator"`
	Channels   ChannelsConfig   `json:"channels" yaml:"channels"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
}

type GeneralConfig struct {
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`                 // "text" | "json"
	LogFile   string `json:"logFile,omitempty" yaml:"logFile,omitempty"` // optional rotated log file
}

// RelayConfig controls automatic translation of channel messages.
type RelayConfig struct {
	TargetLanguage      string  `json:"targetLanguage" yaml:"targetLanguage"`
	ConfidenceThreshold float64 `json:"confidenceThreshold" yaml:"confidenceThreshold"`
	// Category (or chat) IDs whose messages are relayed. Empty means all.
	AutoTranslateCategories FlexStringList `json:"autoTranslateCategories" yaml:"autoTranslateCategories"`
	Concurrency             int            `json:"concurrency" yaml:"concurrency"`
}

type DetectorConfig struct {
	Provider  string   `json:"provider" yaml:"provider"` // "lingua" | "google"
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

type TranslatorConfig struct {
	Provider  string                    `json:"provider" yaml:"provider"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

type ProviderConfig struct {
	APIKey          string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	APIBase         string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
	CredentialsFile string `json:"credentialsFile,omitempty" yaml:"credentialsFile,omitempty"`
	TimeoutSeconds  int    `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

type ChannelsConfig struct {
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
	GuildID string `json:"guildId,omitempty" yaml:"guildId,omitempty"` // register commands on this guild only
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled" yaml:"enabled"`
	Token     string         `json:"token" yaml:"token"`
	AllowFrom FlexStringList `json:"allowFrom" yaml:"allowFrom"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
// Discord snowflakes are often pasted as bare numbers.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = SplitList(single)
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, n.String())
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// UnmarshalYAML accepts a sequence of scalars or a single scalar.
func (f *FlexStringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*f = SplitList(node.Value)
		return nil
	case yaml.SequenceNode:
		result := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a scalar list item", item.Line)
			}
			result = append(result, item.Value)
		}
		*f = result
		return nil
	default:
		return fmt.Errorf("line %d: expected a list", node.Line)
	}
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig configures OTLP trace export. Empty endpoint disables it.
type TracingConfig struct {
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure    bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
}

// DefaultConfigDir returns the default config directory (~/.transbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".transbot"
	}
	return filepath.Join(home, ".transbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the config file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	return finish(cfg)
}

// LoadOrDefaults behaves like Load but starts from Defaults when the file
// does not exist, so the bot can run from environment variables alone.
func LoadOrDefaults(path string) (*Config, error) {
	if _, err := os.Stat(ExpandPath(path)); errors.Is(err, os.ErrNotExist) {
		return finish(Defaults())
	}
	return Load(path)
}

func finish(cfg *Config) (*Config, error) {
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	for name, pc := range cfg.Translator.Providers {
		pc.CredentialsFile = ExpandPath(pc.CredentialsFile)
		cfg.Translator.Providers[name] = pc
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes cfg to path as JSON or YAML depending on the extension.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	// Tokens live in here.
	return os.WriteFile(path, data, 0o600)
}

// ConfidenceThreshold is the only accepted relay.confidenceThreshold.
const ConfidenceThreshold = 0.7

// Validate checks that the config has valid values. A missing credential for
// an enabled component makes the error match domain.ErrMissingCredential.
func Validate(cfg *Config) error {
	var errs []string
	missingCredential := false

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}

	if !domain.LanguageCode(cfg.Relay.TargetLanguage).Equal(domain.English) {
		errs = append(errs, "relay.targetLanguage must be en")
	}
	if cfg.Relay.ConfidenceThreshold != ConfidenceThreshold {
		errs = append(errs, "relay.confidenceThreshold must be "+strconv.FormatFloat(ConfidenceThreshold, 'f', -1, 64))
	}
	if cfg.Relay.Concurrency < 1 || cfg.Relay.Concurrency > 100 {
		errs = append(errs, "relay.concurrency must be between 1 and 100")
	}

	switch cfg.Detector.Provider {
	case "lingua", "google":
	default:
		errs = append(errs, "detector.provider must be one of: lingua, google")
	}

	// Provider credentials are checked when the translator is built.
	if _, ok := cfg.Translator.Providers[cfg.Translator.Provider]; !ok {
		errs = append(errs, fmt.Sprintf("translator.provider references unknown provider: %s", cfg.Translator.Provider))
	}
	for name, pc := range cfg.Translator.Providers {
		if pc.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Sprintf("translator.providers.%s.timeoutSeconds must be >= 0", name))
		}
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		errs = append(errs, "channels.discord.token is required when discord is enabled")
		missingCredential = true
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
		missingCredential = true
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		err := fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
		if missingCredential {
			return errors.Join(domain.ErrMissingCredential, err)
		}
		return err
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
