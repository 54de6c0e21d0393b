// Package cardhash derives a stable identity for a card from its text, so a
// card keeps its review history when its source file is imported again.
package cardhash

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/vocabox/internal/domain"
)

// Normalize lowercases and trims the word and translation and joins them
// with a newline.
func Normalize(inputWord, translation string) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	// The separator keeps "ab"+"c" and "a"+"bc" apart.
	return clean(inputWord) + "\n" + clean(translation)
}

// Hash returns the hex SHA-256 of the card's normalized text.
func Hash(card *domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card.InputWord, card.Translation)))
	return fmt.Sprintf("%x", sum)
}
