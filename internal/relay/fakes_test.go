package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"transbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeDetector returns a fixed detection and records what it saw.
type fakeDetector struct {
	detection *domain.Detection
	err       error

	mu    sync.Mutex
	calls []string
}

func (f *fakeDetector) Name() string { return "fake" }

func (f *fakeDetector) Detect(ctx context.Context, text string) (*domain.Detection, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.detection == nil {
		return nil, nil
	}
	d := *f.detection
	return &d, nil
}

func (f *fakeDetector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeTranslator maps sanitized input to canned output.
type fakeTranslator struct {
	text string
	src  domain.LanguageCode
	err  error

	mu      sync.Mutex
	calls   []translateCall
	healthy error
}

type translateCall struct {
	text      string
	dest, src domain.LanguageCode
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Healthy(ctx context.Context) error { return f.healthy }

func (f *fakeTranslator) Translate(ctx context.Context, text string, dest, src domain.LanguageCode) (*domain.TranslationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, translateCall{text: text, dest: dest, src: src})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	detected := f.src
	if src != "" {
		detected = src
	}
	return &domain.TranslationResult{Text: f.text, SourceLanguage: detected, DestLanguage: dest}, nil
}

func (f *fakeTranslator) lastCall() translateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return translateCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errNetwork = errors.New("dial tcp: connection refused")
