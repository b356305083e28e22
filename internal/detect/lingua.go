// Package detect provides language detectors for the relay.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"transbot/internal/domain"

	"github.com/pemistahl/lingua-go"
)

// Lingua detects languages offline with lingua-go, restricted to a fixed
// candidate set.
type Lingua struct {
	detector lingua.LanguageDetector
	logger   *slog.Logger
}

type LinguaConfig struct {
	Languages []string // ISO 639-1 codes, at least two
	Logger    *slog.Logger
}

// NewLingua builds the detector. Building loads language models for every
// candidate, so it is done once at startup.
func NewLingua(cfg LinguaConfig) (*Lingua, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	langs, err := linguaLanguages(cfg.Languages)
	if err != nil {
		return nil, err
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("lingua: need at least two candidate languages, got %d", len(langs))
	}

	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()
	return &Lingua{detector: d, logger: cfg.Logger}, nil
}

func linguaLanguages(codes []string) ([]lingua.Language, error) {
	byCode := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		byCode[strings.ToLower(l.IsoCode639_1().String())] = l
	}

	out := make([]lingua.Language, 0, len(codes))
	seen := make(map[lingua.Language]bool)
	for _, c := range codes {
		l, ok := byCode[string(domain.LanguageCode(c).Base())]
		if !ok {
			return nil, fmt.Errorf("lingua: unsupported language %q", c)
		}
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out, nil
}

func (l *Lingua) Name() string { return "lingua" }

// Detect returns nil when lingua cannot decide on any candidate.
func (l *Lingua) Detect(_ context.Context, text string) (*domain.Detection, error) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return nil, nil
	}
	confidence := l.detector.ComputeLanguageConfidence(text, lang)
	code := domain.LanguageCode(strings.ToLower(lang.IsoCode639_1().String()))
	l.logger.Debug("lingua detection", "language", code, "confidence", confidence)
	return &domain.Detection{Language: code, Confidence: confidence}, nil
}
