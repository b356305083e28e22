// Package sanitize hides Discord inline references (custom emotes) from the
// language detector and translator and puts them back afterwards.
package sanitize

import (
	"regexp"
	"strings"

	"transbot/internal/domain"
)

// inlineRef matches <:name:123> and <a:name:123>. Group 1 is the full inner
// markup, group 2 the numeric ID.
var inlineRef = regexp.MustCompile(`<(a?:.+?:(\d+))>`)

// Strip replaces every inline reference with a <ID> placeholder. Text
// without references is returned unchanged with no tokens. Each placeholder
// gets exactly one token: when two references share an ID under different
// names, the first markup seen is restored for both.
func Strip(text string) domain.SanitizedText {
	matches := inlineRef.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return domain.SanitizedText{Text: text}
	}

	tokens := make([]domain.TokenReference, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m[2]] {
			continue
		}
		seen[m[2]] = true
		tokens = append(tokens, domain.TokenReference{
			Placeholder: placeholder(m[2]),
			Original:    m[0],
		})
	}

	return domain.SanitizedText{
		Text:   inlineRef.ReplaceAllString(text, "<$2>"),
		Tokens: tokens,
	}
}

// Restore swaps each placeholder back to its original markup.
func Restore(text string, tokens []domain.TokenReference) string {
	out := text
	for _, tok := range tokens {
		out = strings.ReplaceAll(out, tok.Placeholder, tok.Original)
	}
	return out
}

func placeholder(id string) string {
	return "<" + id + ">"
}
