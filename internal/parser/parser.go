package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/conorfennell/vocabox/internal/domain"
)

const (
	wordPrefix        = "W:"
	translationPrefix = "T:"
	separator         = "---"
)

type state int

const (
	seeking state = iota
	readingWord
	readingTranslation
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string, now time.Time) ([]*domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file, now)
}

// Parse reads vocabulary entries from r. An entry starts with "W:" and
// takes its translation from the following "T:" line; lines without a
// prefix continue the current field and "---" closes the entry.
// Every card is created at now.
func Parse(r io.Reader, now time.Time) ([]*domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []*domain.Card
	var word, translation string
	var block []string
	current := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch current {
		case readingWord:
			word = content
		case readingTranslation:
			translation = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if word != "" {
			cards = append(cards, domain.NewCard(word, translation, now))
		}
		word, translation = "", ""
		current = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == separator:
			finishCard()
		case strings.HasPrefix(line, wordPrefix):
			// A new word always starts a new card.
			if current != seeking {
				finishCard()
			}
			current = readingWord
			block = append(block, trimPrefix(line, wordPrefix))
		case strings.HasPrefix(line, translationPrefix):
			flushBlock()
			current = readingTranslation
			block = append(block, trimPrefix(line, translationPrefix))
		case current != seeking && strings.TrimSpace(line) != "":
			block = append(block, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func trimPrefix(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
