package presentation

import (
	"errors"
	"testing"

	"transbot/internal/domain"
)

func frResult() *domain.TranslationResult {
	return &domain.TranslationResult{Text: "hello friend", SourceLanguage: "fr", DestLanguage: "en"}
}

func TestBuild_MessageContext(t *testing.T) {
	color := domain.Color(0x3498db)
	ctx := domain.MessageContext{
		Author: domain.Author{
			DisplayName: "Amélie",
			AvatarURL:   "https://cdn.example/a.png",
			AccentColor: &color,
		},
		SourceURL: "https://discord.com/channels/1/2/3",
	}

	p, err := Build(frResult(), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Body != "hello friend" {
		t.Fatalf("body = %q", p.Body)
	}
	if p.Footer != "Translated from French" {
		t.Fatalf("footer = %q", p.Footer)
	}
	if p.AuthorName != "Amélie" || p.AuthorIconURL != "https://cdn.example/a.png" {
		t.Fatalf("author not copied: %+v", p)
	}
	if p.AuthorURL != "https://discord.com/channels/1/2/3" {
		t.Fatalf("author url = %q", p.AuthorURL)
	}
	if p.AccentColor == nil || *p.AccentColor != color {
		t.Fatalf("accent color not copied: %v", p.AccentColor)
	}
}

func TestBuild_CommandContextHasNoURL(t *testing.T) {
	ctx := domain.CommandContext{Author: domain.Author{DisplayName: "Juan"}}
	p, err := Build(frResult(), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AuthorURL != "" {
		t.Fatalf("command context must not carry a url, got %q", p.AuthorURL)
	}
	if p.AccentColor != nil {
		t.Fatalf("expected nil accent color, got %v", *p.AccentColor)
	}
}

func TestBuild_PointerContexts(t *testing.T) {
	if _, err := Build(frResult(), &domain.CommandContext{}); err != nil {
		t.Fatalf("pointer command context: %v", err)
	}
	var nilMsg *domain.MessageContext
	if _, err := Build(frResult(), nilMsg); !errors.Is(err, domain.ErrInputContract) {
		t.Fatalf("expected ErrInputContract for typed nil, got %v", err)
	}
}

func TestBuild_NoContext(t *testing.T) {
	_, err := Build(frResult(), nil)
	if !errors.Is(err, domain.ErrInputContract) {
		t.Fatalf("expected ErrInputContract, got %v", err)
	}
}

func TestBuild_NilResult(t *testing.T) {
	_, err := Build(nil, domain.CommandContext{})
	if !errors.Is(err, domain.ErrInputContract) {
		t.Fatalf("expected ErrInputContract, got %v", err)
	}
}
