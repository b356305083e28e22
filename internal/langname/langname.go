// Package langname renders language codes as English display names.
package langname

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"transbot/internal/domain"
)

var namer = display.English.Languages()

// Name returns the English name of the code's base language ("zh-CN" ->
// "Chinese"). Codes x/text cannot parse are returned as given.
func Name(code domain.LanguageCode) string {
	raw := strings.TrimSpace(string(code))
	if raw == "" {
		return "Unknown"
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return raw
	}
	base, _ := tag.Base()
	if name := namer.Name(base); name != "" {
		return name
	}
	return raw
}
