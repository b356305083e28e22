// Package presentation assembles the translation view shown to chat users.
package presentation

import (
	"fmt"

	"transbot/internal/domain"
	"transbot/internal/langname"
)

const footerPrefix = "Translated from "

// Build assembles the payload for a translation result. Exactly one context
// variant must be supplied; a nil context is a caller bug.
func Build(result *domain.TranslationResult, ctx domain.PresentationContext) (*domain.Presentation, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil translation result", domain.ErrInputContract)
	}

	var author domain.Author
	var url string
	switch c := ctx.(type) {
	case domain.MessageContext:
		author = c.Author
		url = c.SourceURL
	case *domain.MessageContext:
		if c == nil {
			return nil, fmt.Errorf("%w: nil message context", domain.ErrInputContract)
		}
		author = c.Author
		url = c.SourceURL
	case domain.CommandContext:
		author = c.Author
	case *domain.CommandContext:
		if c == nil {
			return nil, fmt.Errorf("%w: nil command context", domain.ErrInputContract)
		}
		author = c.Author
	default:
		return nil, fmt.Errorf("%w: message or command context required", domain.ErrInputContract)
	}

	return &domain.Presentation{
		Body:          result.Text,
		Footer:        Footer(result.SourceLanguage),
		AuthorName:    author.DisplayName,
		AuthorURL:     url,
		AuthorIconURL: author.AvatarURL,
		AccentColor:   author.AccentColor,
	}, nil
}

// Footer renders the "Translated from <Language>" line.
func Footer(src domain.LanguageCode) string {
	return footerPrefix + langname.Name(src)
}
