package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputContract marks a caller bug, such as building a presentation
	// without any context.
	ErrInputContract = errors.New("input contract violated")

	// ErrMissingCredential is returned when a provider cannot be built
	// because its credentials are not configured.
	ErrMissingCredential = errors.New("missing credential")
)

// TranslationProviderError wraps a network, auth or quota failure from a
// translation provider.
type TranslationProviderError struct {
	Provider string
	Err      error
}

func (e *TranslationProviderError) Error() string {
	return fmt.Sprintf("translation provider %s: %v", e.Provider, e.Err)
}

func (e *TranslationProviderError) Unwrap() error { return e.Err }
