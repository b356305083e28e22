package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"transbot/internal/config"
	"transbot/internal/domain"
	"transbot/internal/provider"
)

// New builds the detector selected by cfg.Detector.Provider. The google
// detector borrows the credentials of translator.providers.google.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Detector, error) {
	langs := cfg.Detector.Languages
	if len(langs) == 0 {
		langs = config.DefaultDetectorLanguages
	}
	switch cfg.Detector.Provider {
	case "", "lingua":
		return NewLingua(LinguaConfig{Languages: langs, Logger: logger})
	case "google":
		pc := cfg.Translator.Providers["google"]
		return NewGoogle(ctx, GoogleConfig{
			GoogleConfig: provider.GoogleConfig{
				APIKey:          pc.APIKey,
				CredentialsFile: pc.CredentialsFile,
				Endpoint:        pc.APIBase,
				HTTPClient:      provider.SharedHTTPClient(time.Duration(pc.TimeoutSeconds) * time.Second),
				Logger:          logger,
			},
			Languages: langs,
		})
	default:
		return nil, fmt.Errorf("unknown detector: %s", cfg.Detector.Provider)
	}
}
