package schedule

import (
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/vocabox/internal/clock"
	"github.com/conorfennell/vocabox/internal/domain"
)

// intervalDays maps a card level to the days before it is due again.
// Levels past the end of the table use the last entry.
var intervalDays = [...]uint{
	0, // new or just forgotten: due right away
	1,
	2,
	5,
	14,
	28,
}

// MaxLevel is the lowest level that gets the longest interval.
const MaxLevel = uint(len(intervalDays) - 1)

// ScheduledDays returns the number of days a card at the given level waits
// after its last review.
func ScheduledDays(level uint) uint {
	if level > MaxLevel {
		level = MaxLevel
	}
	return intervalDays[level]
}

// Interval is ScheduledDays expressed as a duration of whole days.
func Interval(level uint) time.Duration {
	return time.Duration(ScheduledDays(level)) * clock.Day
}

// DueDate returns the instant at which the card becomes reviewable again.
func DueDate(card *domain.Card) time.Time {
	return card.UpdatedAt.Add(Interval(card.Level))
}

// IsDue reports whether the card is reviewable at now. A card due exactly
// at now counts as due.
func IsDue(card *domain.Card, now time.Time) bool {
	return !now.Before(DueDate(card))
}

// DueCards returns the cards reviewable at now, in their original order.
// The cards are not modified.
func DueCards(cards []*domain.Card, now time.Time) []*domain.Card {
	return lo.Filter(cards, func(card *domain.Card, _ int) bool {
		return IsDue(card, now)
	})
}

// Scheduler runs reviews and due queries against an injected clock.
type Scheduler struct {
	now clock.Clock
}

// New creates a Scheduler. A nil clock means the system clock.
func New(now clock.Clock) *Scheduler {
	return &Scheduler{now: clock.OrSystem(now)}
}

// Now reports the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// Review applies the outcome to the card at the current time and returns the
// resulting review log entry.
func (s *Scheduler) Review(card *domain.Card, outcome domain.Outcome) domain.ReviewLog {
	card.Revise(outcome, s.now())
	return domain.ReviewLog{
		CardID:     card.ID,
		Outcome:    outcome,
		Level:      card.Level,
		ReviewedAt: card.UpdatedAt,
	}
}

// Due returns the cards reviewable at the current time.
func (s *Scheduler) Due(cards []*domain.Card) []*domain.Card {
	return DueCards(cards, s.now())
}
