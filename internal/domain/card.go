package domain

import (
	"fmt"
	"time"
)

// Card is a word being learned together with its translation and review state.
type Card struct {
	ID              int64
	Hash            string
	InputWord       string // in the learned language
	Translation     string // in the spoken language
	Level           uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
	RepetitionCount uint32
}

// NewCard creates a level 0 card that has never been reviewed.
func NewCard(inputWord, translation string, now time.Time) *Card {
	return &Card{
		InputWord:   inputWord,
		Translation: translation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Revise applies a review outcome at the given time.
// Success moves the card up one level, Failure sends it back to level 0.
// Either way the repetition count grows by one and UpdatedAt moves to now.
// UpdatedAt never goes backwards, so a clock earlier than the last review
// leaves it where it is.
func (c *Card) Revise(outcome Outcome, now time.Time) {
	switch outcome {
	case Success:
		c.Level++
	case Failure:
		c.Level = 0
	default:
		panic(fmt.Sprintf("domain: revise with %v", outcome))
	}
	c.RepetitionCount++
	if now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
}

// ReviewLog records a single review event for a card.
type ReviewLog struct {
	CardID     int64
	Outcome    Outcome
	Level      uint // level after the review
	ReviewedAt time.Time
}
