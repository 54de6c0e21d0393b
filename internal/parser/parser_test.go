package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2017, time.July, 14, 2, 40, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedW     string
		expectedT     string
	}{
		{
			name:          "Simple pair",
			input:         "W: bike\nT: vélo",
			expectedCards: 1,
			expectedW:     "bike",
			expectedT:     "vélo",
		},
		{
			name: "Multiline translation",
			input: `
W: to run
T: courir
filer
`,
			expectedCards: 1,
			expectedW:     "to run",
			expectedT:     "courir\nfiler",
		},
		{
			name: "Two Cards",
			input: `
W: apple
T: pomme

W: beach
T: plage
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `
W: apple
T: pomme
---
this line is ignored
W: beach
T: plage
`,
			expectedCards: 2,
		},
		{
			name:          "Word without translation",
			input:         "W: lonely",
			expectedCards: 1,
			expectedW:     "lonely",
			expectedT:     "",
		},
		{
			name:          "Translation without word is dropped",
			input:         "T: orphan",
			expectedCards: 0,
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no words.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "W:bike\nT:vélo",
			expectedCards: 1,
			expectedW:     "bike",
			expectedT:     "vélo",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input), now)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			for _, card := range cards {
				if card.Level != 0 || !card.CreatedAt.Equal(now) {
					t.Errorf("Expected a fresh card created at %v, but got level %d at %v", now, card.Level, card.CreatedAt)
				}
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.InputWord != tc.expectedW {
					t.Errorf("Expected InputWord to be '%s', but got '%s'", tc.expectedW, card.InputWord)
				}
				if card.Translation != tc.expectedT {
					t.Errorf("Expected Translation to be '%s', but got '%s'", tc.expectedT, card.Translation)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.md")
	if err := os.WriteFile(path, []byte("W: bike\nT: vélo\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cards, err := ParseFile(path, now)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].InputWord != "bike" {
		t.Errorf("Expected one 'bike' card, but got %d cards", len(cards))
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md"), now); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
