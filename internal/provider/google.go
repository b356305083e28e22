package provider

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"

	"transbot/internal/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

const cloudTranslationScope = "https://www.googleapis.com/auth/cloud-translation"

// Google implements domain.Translator on the Cloud Translation v2 API.
type Google struct {
	svc    *translate.Service
	logger *slog.Logger
}

// GoogleConfig configures the Cloud Translation client. One of APIKey or
// CredentialsFile is required.
type GoogleConfig struct {
	APIKey          string
	CredentialsFile string       // service account JSON
	Endpoint        string       // optional override, mainly for tests
	HTTPClient      *http.Client // base transport for service account auth
	Logger          *slog.Logger
}

// NewGoogle builds a Cloud Translation client.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	svc, err := newTranslateService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Google{svc: svc, logger: cfg.Logger}, nil
}

// newTranslateService is shared with the Google language detector.
func newTranslateService(ctx context.Context, cfg GoogleConfig) (*translate.Service, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		// WithHTTPClient would bypass the key, so the library builds its own client.
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials %s: %w", cfg.CredentialsFile, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudTranslationScope)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		base := cfg.HTTPClient
		if base == nil {
			base = SharedHTTPClient(defaultHTTPTimeout)
		}
		client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), creds.TokenSource)
		opts = append(opts, option.WithHTTPClient(client))
	default:
		return nil, fmt.Errorf("google translate: %w: set an API key or a credentials file", domain.ErrMissingCredential)
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google translate client: %w", err)
	}
	return svc, nil
}

// NewGoogleDetectionService exposes the underlying client for detection.
func NewGoogleDetectionService(ctx context.Context, cfg GoogleConfig) (*translate.Service, error) {
	return newTranslateService(ctx, cfg)
}

func (g *Google) Name() string { return "google" }

func (g *Google) Translate(ctx context.Context, text string, dest, src domain.LanguageCode) (*domain.TranslationResult, error) {
	call := g.svc.Translations.List([]string{text}, string(dest)).Format("text").Context(ctx)
	if !src.IsAuto() {
		call = call.Source(string(src))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, &domain.TranslationProviderError{Provider: g.Name(), Err: err}
	}
	if len(resp.Translations) == 0 {
		return nil, &domain.TranslationProviderError{Provider: g.Name(), Err: errors.New("empty translation response")}
	}

	tr := resp.Translations[0]
	detected := src
	if src.IsAuto() {
		detected = domain.LanguageCode(tr.DetectedSourceLanguage)
	}
	g.logger.Debug("google translation done", "src", detected, "dest", dest, "chars", len(text))

	return &domain.TranslationResult{
		// format=text should already be plain, but older models still escape.
		Text:           html.UnescapeString(tr.TranslatedText),
		SourceLanguage: detected,
		DestLanguage:   dest,
	}, nil
}

// Healthy lists supported languages as a cheap authenticated call.
func (g *Google) Healthy(ctx context.Context) error {
	if _, err := g.svc.Languages.List().Context(ctx).Do(); err != nil {
		return fmt.Errorf("google translate not reachable: %w", err)
	}
	return nil
}
