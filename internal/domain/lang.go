package domain

import (
	"fmt"
	"strings"
)

// Lang is a lowercase ISO 639-1 language code.
type Lang string

const (
	EN Lang = "en"
	FR Lang = "fr"
	ES Lang = "es"
	DE Lang = "de"
	IT Lang = "it"
)

var knownLangs = map[Lang]bool{EN: true, FR: true, ES: true, DE: true, IT: true}

// ParseLang reads a language code such as "EN" or " fr ".
func ParseLang(s string) (Lang, error) {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	if !knownLangs[l] {
		return "", fmt.Errorf("%w: %q", ErrInvalidLang, s)
	}
	return l, nil
}
