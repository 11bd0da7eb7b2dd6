package translate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"signflow/internal/language"
)

// ErrAlreadyInitialized is returned when initial values are applied twice.
var ErrAlreadyInitialized = errors.New("session already initialized")

// ParseInitURL reads the sil, spl and text parameters from a URL or a bare
// query string.
func ParseInitURL(raw string) (InitValues, error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") {
		u, err := url.Parse(raw)
		if err != nil {
			return InitValues{}, fmt.Errorf("parse init url: %w", err)
		}
		query = u.RawQuery
	}
	query = strings.TrimPrefix(query, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return InitValues{}, fmt.Errorf("parse init query: %w", err)
	}
	return InitValues{
		SignedLanguage: language.Normalize(values.Get("sil")),
		SpokenLanguage: language.Normalize(values.Get("spl")),
		Text:           values.Get("text"),
	}, nil
}

// Initialize applies the initial overrides and runs the first
// recomputation. It succeeds only once per session.
func (o *Orchestrator) Initialize(values InitValues) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return ErrAlreadyInitialized
	}
	o.initialized = true

	if values.SignedLanguage != "" {
		o.state.SignedLanguage = ptr(language.Normalize(values.SignedLanguage))
	}
	if values.SpokenLanguage != "" {
		o.state.SpokenLanguage = ptr(language.Normalize(values.SpokenLanguage))
		o.state.DetectedLanguage = nil
	}
	if values.Text != "" {
		o.setSourceTextLocked(values.Text)
	} else {
		o.recomputeLocked()
	}
	o.publishLocked()
	return nil
}
