package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transbot/internal/config"
	"transbot/internal/domain"
)

// TranslatorConstructor builds a translator from its config entry.
type TranslatorConstructor func(ctx context.Context, pc config.ProviderConfig, logger *slog.Logger) (domain.Translator, error)

// Factory creates and caches translators from config.
type Factory struct {
	cfg          config.TranslatorConfig
	logger       *slog.Logger
	constructors map[string]TranslatorConstructor
	cache        map[string]domain.Translator
	mu           sync.RWMutex
}

// NewFactory creates a translator factory with the built-in constructors registered.
func NewFactory(cfg config.TranslatorConfig, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]TranslatorConstructor),
		cache:        make(map[string]domain.Translator),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a translator constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor TranslatorConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func timeout(pc config.ProviderConfig) time.Duration {
	return time.Duration(pc.TimeoutSeconds) * time.Second
}

func (f *Factory) registerDefaults() {
	f.constructors["google"] = func(ctx context.Context, pc config.ProviderConfig, logger *slog.Logger) (domain.Translator, error) {
		return NewGoogle(ctx, GoogleConfig{
			APIKey:          pc.APIKey,
			CredentialsFile: pc.CredentialsFile,
			Endpoint:        pc.APIBase,
			HTTPClient:      SharedHTTPClient(timeout(pc)),
			Logger:          logger,
		})
	}

	f.constructors["openai"] = func(_ context.Context, pc config.ProviderConfig, logger *slog.Logger) (domain.Translator, error) {
		if pc.APIKey == "" {
			return nil, fmt.Errorf("openai: %w: set translator.providers.openai.apiKey or OPENAI_API_KEY", domain.ErrMissingCredential)
		}
		return NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, Timeout: timeout(pc), Logger: logger}), nil
	}
}

// Get returns the translator with the given name, or the configured one if
// name is empty. Instances are cached.
func (f *Factory) Get(ctx context.Context, name string) (domain.Translator, error) {
	if name == "" {
		name = f.cfg.Provider
	}

	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown translator: %s", name)
	}

	ctor, found := f.constructors[name]
	var (
		t   domain.Translator
		err error
	)
	switch {
	case found:
		t, err = ctor(ctx, pc, f.logger)
	case pc.APIBase != "":
		// Unknown names with an endpoint are treated as OpenAI-compatible
		// (local Ollama needs no key).
		t = NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, Timeout: timeout(pc), Logger: f.logger})
	default:
		return nil, fmt.Errorf("translator %s: %w: no constructor registered and no apiBase configured", name, domain.ErrMissingCredential)
	}
	if err != nil {
		return nil, err
	}

	f.cache[name] = t
	return t, nil
}

// Default returns the configured translator.
func (f *Factory) Default(ctx context.Context) (domain.Translator, error) {
	return f.Get(ctx, "")
}
