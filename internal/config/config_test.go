package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// clearEnv blanks every override variable so the host environment does not
// leak into Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TOKEN", "DISCORD_TOKEN", "GUILD_ID", "AUTO_TRANSLATE_CATEGORY",
		"TELEGRAM_TOKEN", "GOOGLE_TRANSLATE_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS",
		"OPENAI_API_KEY", "TRANSBOT_LOG_LEVEL", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_ConfidenceThresholdIsFixed(t *testing.T) {
	for _, v := range []float64{0, 0.5, 0.69, 0.8, 1} {
		cfg := Defaults()
		cfg.Relay.ConfidenceThreshold = v
		if err := Validate(cfg); err == nil {
			t.Fatalf("threshold %v should be rejected", v)
		}
	}
}

func TestValidate_TargetLanguage(t *testing.T) {
	cfg := Defaults()
	cfg.Relay.TargetLanguage = "fr"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for non-English target")
	}

	cfg.Relay.TargetLanguage = "en-US"
	if err := Validate(cfg); err != nil {
		t.Fatalf("en-US should be accepted: %v", err)
	}
}

func TestValidate_Concurrency_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.Relay.Concurrency = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for concurrency=0")
	}
	cfg.Relay.Concurrency = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("concurrency=1 should be valid: %v", err)
	}
	cfg.Relay.Concurrency = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("concurrency=100 should be valid: %v", err)
	}
	cfg.Relay.Concurrency = 101
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for concurrency=101")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_InvalidDetector(t *testing.T) {
	cfg := Defaults()
	cfg.Detector.Provider = "cld3"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown detector")
	}
}

func TestValidate_UnknownTranslator(t *testing.T) {
	cfg := Defaults()
	cfg.Translator.Provider = "deepl"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unknown translator")
	}
	if !strings.Contains(err.Error(), "deepl") {
		t.Fatalf("error should name the provider: %v", err)
	}
}

func TestValidate_DiscordWithoutToken(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Discord.Enabled = true
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for discord without token")
	}
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "loud"
	cfg.Relay.Concurrency = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "logLevel") || !strings.Contains(err.Error(), "concurrency") {
		t.Fatalf("both problems should be reported: %v", err)
	}
	if errors.Is(err, domain.ErrMissingCredential) {
		t.Fatal("no credential problem here")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Relay.AutoTranslateCategories = FlexStringList{"111", "222"}
	original.Translator.Provider = "openai"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Translator.Provider != "openai" {
		t.Fatalf("expected 'openai', got %q", loaded.Translator.Provider)
	}
	if len(loaded.Relay.AutoTranslateCategories) != 2 || loaded.Relay.AutoTranslateCategories[1] != "222" {
		t.Fatalf("categories mismatch: %v", loaded.Relay.AutoTranslateCategories)
	}
}

func TestLoadSave_RoundTripYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Defaults()
	original.General.LogFormat = "json"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "logFormat: json") {
		t.Fatalf("expected YAML output, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.LogFormat != "json" {
		t.Fatalf("expected 'json', got %q", loaded.General.LogFormat)
	}
}

func TestLoad_YAMLCategoryForms(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
relay:
  autoTranslateCategories:
    - 1081365448342847488
    - "42"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := cfg.Relay.AutoTranslateCategories
	if len(got) != 2 || got[0] != "1081365448342847488" || got[1] != "42" {
		t.Fatalf("unexpected categories: %v", got)
	}
	// Unset keys keep their defaults.
	if cfg.Relay.Concurrency != 8 {
		t.Fatalf("expected default concurrency, got %d", cfg.Relay.Concurrency)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOrDefaults_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "discord-token")

	cfg, err := LoadOrDefaults(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Channels.Discord.Enabled || cfg.Channels.Discord.Token != "discord-token" {
		t.Fatalf("discord should come from the environment: %+v", cfg.Channels.Discord)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"relay": {"confidenceThreshold": 0.5}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for confidenceThreshold=0.5")
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_TRANSBOT_BOT_TOKEN", "from-env")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"channels": {
			"discord": {"enabled": true, "token": "${TEST_TRANSBOT_BOT_TOKEN}"}
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Channels.Discord.Token != "from-env" {
		t.Fatalf("expected token 'from-env', got %q", cfg.Channels.Discord.Token)
	}
}

// --- Environment overrides ---

func TestApplyEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "legacy-token")
	t.Setenv("GUILD_ID", "999")
	t.Setenv("AUTO_TRANSLATE_CATEGORY", "111, 222 333")
	t.Setenv("GOOGLE_TRANSLATE_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TRANSBOT_LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.Channels.Discord.Token != "legacy-token" || !cfg.Channels.Discord.Enabled {
		t.Fatalf("discord not configured: %+v", cfg.Channels.Discord)
	}
	if cfg.Channels.Discord.GuildID != "999" {
		t.Fatalf("guild id: %q", cfg.Channels.Discord.GuildID)
	}
	cats := cfg.Relay.AutoTranslateCategories
	if len(cats) != 3 || cats[0] != "111" || cats[2] != "333" {
		t.Fatalf("categories: %v", cats)
	}
	if cfg.Translator.Providers["google"].APIKey != "g-key" {
		t.Fatal("google key not applied")
	}
	if cfg.Translator.Providers["openai"].APIKey != "sk-test" {
		t.Fatal("openai key not applied")
	}
	if cfg.Translator.Providers["openai"].Model != "gpt-4o-mini" {
		t.Fatal("openai defaults should survive the override")
	}
	if cfg.General.LogLevel != "debug" {
		t.Fatalf("log level: %q", cfg.General.LogLevel)
	}
	if cfg.Tracing.Endpoint != "collector:4317" {
		t.Fatalf("tracing endpoint: %q", cfg.Tracing.Endpoint)
	}
	if cfg.Channels.Telegram.Enabled {
		t.Fatal("telegram should stay disabled")
	}
}

func TestApplyEnv_DiscordTokenWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "legacy")
	t.Setenv("DISCORD_TOKEN", "preferred")

	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Channels.Discord.Token != "preferred" {
		t.Fatalf("expected DISCORD_TOKEN to win, got %q", cfg.Channels.Discord.Token)
	}
}

func TestApplyEnv_NothingSet(t *testing.T) {
	clearEnv(t)
	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Channels.Discord.Enabled || len(cfg.Relay.AutoTranslateCategories) != 0 {
		t.Fatal("defaults should be untouched")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TEST_TRANSBOT_DOTENV=hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("TEST_TRANSBOT_DOTENV")
	t.Cleanup(func() { os.Unsetenv("TEST_TRANSBOT_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("TEST_TRANSBOT_DOTENV"); got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a,b  c,,\td ")
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if len(SplitList("")) != 0 {
		t.Fatal("empty input should give no entries")
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "detector.provider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "lingua" {
		t.Fatalf("expected 'lingua', got %v", val)
	}

	val, err = GetByPath(cfg, "detector.languages.0")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	if val != "en" {
		t.Fatalf("expected 'en', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "translator.provider", "openai"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Translator.Provider != "openai" {
		t.Fatalf("expected 'openai', got %q", cfg.Translator.Provider)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "metrics.enabled", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics.enabled=true")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "relay.concurrency", "16"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Relay.Concurrency != 16 {
		t.Fatalf("expected 16, got %d", cfg.Relay.Concurrency)
	}
}

func TestSetByPath_NewProvider(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "translator.providers.gemini.apiBase", "https://example.test/v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Translator.Providers["gemini"].APIBase != "https://example.test/v1" {
		t.Fatalf("provider not created: %+v", cfg.Translator.Providers)
	}
}

func TestSetByPath_SnowflakeStaysString(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "channels.discord.guildId", "1081365448342847488"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Channels.Discord.GuildID != "1081365448342847488" {
		t.Fatalf("guild id = %q", cfg.Channels.Discord.GuildID)
	}
}

func TestSetByPath_ListField(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "relay.autoTranslateCategories", "1081365448342847488, 42"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := cfg.Relay.AutoTranslateCategories
	if len(got) != 2 || got[0] != "1081365448342847488" || got[1] != "42" {
		t.Fatalf("categories = %v", got)
	}

	if err := SetByPath(cfg, "detector.languages", "en fr de"); err != nil {
		t.Fatalf("set languages: %v", err)
	}
	if len(cfg.Detector.Languages) != 3 || cfg.Detector.Languages[2] != "de" {
		t.Fatalf("languages = %v", cfg.Detector.Languages)
	}
}

func TestSetByPath_TypeMismatch(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "metrics.enabled", "yes please"); err == nil {
		t.Fatal("expected error for non-bool value")
	}
	if err := SetByPath(cfg, "relay.concurrency", "many"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	if err := SetByPath(cfg, "relay", "x"); err == nil {
		t.Fatal("expected error when overwriting a section")
	}
	if cfg.Relay.Concurrency != 8 {
		t.Fatalf("failed set modified config: %d", cfg.Relay.Concurrency)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Discord.Token = "MTA4MTM2NTQ0ODM0Mjg0NzQ4OA.Gx1234.abcdefghijkl"
	cfg.Channels.Telegram.Token = "123456789:ABCdefGHIjklMNOpqrSTUvwxyz"
	cfg.Translator.Providers["openai"] = ProviderConfig{APIKey: "sk-1234567890abcdefghijklmnop"}

	sanitized := Sanitize(cfg)

	if sanitized.Channels.Discord.Token == cfg.Channels.Discord.Token {
		t.Fatal("discord token should be masked")
	}
	if sanitized.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Fatal("telegram token should be masked")
	}
	if sanitized.Translator.Providers["openai"].APIKey == cfg.Translator.Providers["openai"].APIKey {
		t.Fatal("API key should be masked")
	}
	if cfg.Channels.Telegram.Token != "123456789:ABCdefGHIjklMNOpqrSTUvwxyz" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Channels.Telegram.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Channels.Telegram.Token)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	seen := make(map[string]bool)
	for i, p := range paths {
		seen[p.Path] = true
		if i > 0 && paths[i-1].Path > p.Path {
			t.Fatalf("paths not sorted: %q before %q", paths[i-1].Path, p.Path)
		}
	}
	for _, expected := range []string{"general.logLevel", "relay.confidenceThreshold", "metrics.enabled", "translator.providers.openai.model", "detector.languages"} {
		if !seen[expected] {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	input := `["hello", 123, "world", 1081365448342847488]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 items, got %d", len(list))
	}
	if list[0] != "hello" || list[2] != "world" {
		t.Fatal("string items mismatch")
	}
	// Snowflakes exceed float64 precision and must survive intact.
	if list[1] != "123" || list[3] != "1081365448342847488" {
		t.Fatalf("number conversion mismatch: %v", list)
	}
}

func TestFlexStringList_PureStrings(t *testing.T) {
	input := `["a", "b", "c"]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[0] != "a" {
		t.Fatalf("unexpected: %v", list)
	}
}

func TestFlexStringList_InvalidJSON(t *testing.T) {
	var list FlexStringList
	err := json.Unmarshal([]byte(`not json`), &list)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestFlexStringList_YAMLScalar(t *testing.T) {
	var out struct {
		IDs FlexStringList `yaml:"ids"`
	}
	if err := yaml.Unmarshal([]byte("ids: 111,222"), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.IDs) != 2 || out.IDs[1] != "222" {
		t.Fatalf("unexpected: %v", out.IDs)
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"addr": "${NONEXISTENT_VAR_12345:-127.0.0.1:9090}"}`)
	expected := `{"addr": "127.0.0.1:9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	if result != `"fallback"` {
		t.Fatalf("expected fallback, got %q", result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Relay.ConfidenceThreshold != 0.7 {
		t.Fatalf("threshold should be 0.7, got %v", cfg.Relay.ConfidenceThreshold)
	}
	if cfg.Detector.Provider != "lingua" {
		t.Fatalf("default detector should be 'lingua', got %q", cfg.Detector.Provider)
	}
	if len(cfg.Detector.Languages) != len(DefaultDetectorLanguages) {
		t.Fatalf("detector languages: %v", cfg.Detector.Languages)
	}
}
