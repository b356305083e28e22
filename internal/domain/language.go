package domain

import "strings"

// LanguageCode is an ISO 639-1 code, optionally with a region or script
// suffix ("en", "zh-CN", "pt_BR").
type LanguageCode string

const (
	English LanguageCode = "en"

	// AutoDetect asks the translation provider to detect the source.
	AutoDetect LanguageCode = "auto"
)

// Base returns the lowercased primary subtag ("zh-CN" -> "zh").
func (c LanguageCode) Base() LanguageCode {
	s := strings.ToLower(strings.TrimSpace(string(c)))
	if idx := strings.IndexAny(s, "-_"); idx >= 0 {
		s = s[:idx]
	}
	return LanguageCode(s)
}

// Equal reports whether both codes name the same base language.
func (c LanguageCode) Equal(other LanguageCode) bool {
	return c.Base() != "" && c.Base() == other.Base()
}

// IsAuto reports whether the code requests provider-side detection.
func (c LanguageCode) IsAuto() bool {
	b := c.Base()
	return b == "" || b == AutoDetect
}
