package domain

import "context"

// TokenReference pairs a neutral placeholder with the markup it replaced.
type TokenReference struct {
	Placeholder string
	Original    string
}

// SanitizedText is message text with inline references swapped for
// placeholders, plus what is needed to reverse the swap.
type SanitizedText struct {
	Text   string
	Tokens []TokenReference
}

// Detection is a language classification with its confidence in [0,1].
type Detection struct {
	Language   LanguageCode
	Confidence float64
}

// TranslationResult is what a translation provider returns for one call.
type TranslationResult struct {
	Text           string
	SourceLanguage LanguageCode
	DestLanguage   LanguageCode
}

// Detector classifies the language of a text. A nil Detection with a nil
// error means the detector declined to classify.
type Detector interface {
	Name() string
	Detect(ctx context.Context, text string) (*Detection, error)
}

// Translator translates text into dest. An auto src lets the provider
// detect the source language.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text string, dest, src LanguageCode) (*TranslationResult, error)
	Healthy(ctx context.Context) error
}
