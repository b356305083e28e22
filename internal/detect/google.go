package detect

import (
	"context"
	"fmt"
	"log/slog"

	"transbot/internal/config"
	"transbot/internal/domain"
	"transbot/internal/provider"

	translate "google.golang.org/api/translate/v2"
)

// Google detects languages with the Cloud Translation v2 detect endpoint.
// Only candidates in its language set are considered, like Lingua.
type Google struct {
	svc     *translate.Service
	allowed map[domain.LanguageCode]bool
	logger  *slog.Logger
}

// GoogleConfig shares its credential handling with provider.Google.
// Languages defaults to config.DefaultDetectorLanguages.
type GoogleConfig struct {
	provider.GoogleConfig
	Languages []string
}

func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = config.DefaultDetectorLanguages
	}
	allowed := make(map[domain.LanguageCode]bool, len(langs))
	for _, l := range langs {
		code := domain.LanguageCode(l).Base()
		if code != "" {
			allowed[code] = true
		}
	}

	svc, err := provider.NewGoogleDetectionService(ctx, cfg.GoogleConfig)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Google{svc: svc, allowed: allowed, logger: logger}, nil
}

func (g *Google) Name() string { return "google" }

// Detect picks the most confident candidate in the language set. An "und"
// answer, an empty list or only unknown languages counts as declined.
func (g *Google) Detect(ctx context.Context, text string) (*domain.Detection, error) {
	resp, err := g.svc.Detections.List([]string{text}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google detect: %w", err)
	}
	if len(resp.Detections) == 0 {
		return nil, nil
	}

	var best *translate.DetectionsResourceItem
	for _, item := range resp.Detections[0] {
		if item == nil || item.Language == "" || item.Language == "und" {
			continue
		}
		if !g.allowed[domain.LanguageCode(item.Language).Base()] {
			continue
		}
		if best == nil || item.Confidence > best.Confidence {
			best = item
		}
	}
	if best == nil {
		return nil, nil
	}
	g.logger.Debug("google detection", "language", best.Language, "confidence", best.Confidence)
	return &domain.Detection{Language: domain.LanguageCode(best.Language), Confidence: best.Confidence}, nil
}
