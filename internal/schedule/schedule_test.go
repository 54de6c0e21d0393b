package schedule

import (
	"testing"
	"time"

	"github.com/conorfennell/vocabox/internal/clock"
	"github.com/conorfennell/vocabox/internal/domain"
)

var t0 = time.Date(2017, time.July, 14, 2, 40, 0, 0, time.UTC)

func TestScheduledDays(t *testing.T) {
	testCases := []struct {
		level uint
		days  uint
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 5},
		{4, 14},
		{5, 28},
		{6, 28},
		{54, 28},
		{^uint(0), 28},
	}

	for _, tc := range testCases {
		if got := ScheduledDays(tc.level); got != tc.days {
			t.Errorf("Expected level %d to wait %d days, but got %d", tc.level, tc.days, got)
		}
	}
}

func TestScheduledDaysMonotonic(t *testing.T) {
	prev := ScheduledDays(0)
	for level := uint(1); level <= 100; level++ {
		days := ScheduledDays(level)
		if days < prev {
			t.Fatalf("Expected non-decreasing offsets, but level %d has %d days after %d", level, days, prev)
		}
		prev = days
	}
}

func TestInterval(t *testing.T) {
	if got := Interval(3); got != 5*86400*time.Second {
		t.Errorf("Expected 5 days, but got %v", got)
	}
}

func TestDueDate(t *testing.T) {
	card := domain.NewCard("apple", "pomme", t0)
	if due := DueDate(card); !due.Equal(t0) {
		t.Errorf("Expected a new card to be due at %v, but got %v", t0, due)
	}

	card.Level = 4
	if due := DueDate(card); !due.Equal(t0.Add(14 * clock.Day)) {
		t.Errorf("Expected level 4 to be due 14 days later, but got %v", due)
	}
}

func TestIsDue(t *testing.T) {
	card := domain.NewCard("apple", "pomme", t0)

	t.Run("new card is due at creation", func(t *testing.T) {
		if !IsDue(card, t0) {
			t.Error("Expected a fresh card to be due at its creation time")
		}
		if !IsDue(card, t0.Add(365*clock.Day)) {
			t.Error("Expected a fresh card to stay due")
		}
		if IsDue(card, t0.Add(-time.Nanosecond)) {
			t.Error("Expected a fresh card not to be due before its creation")
		}
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		c := *card
		c.Level = 2
		due := t0.Add(2 * clock.Day)
		if !IsDue(&c, due) {
			t.Error("Expected card to be due exactly at its due date")
		}
		if IsDue(&c, due.Add(-time.Nanosecond)) {
			t.Error("Expected card not to be due just before its due date")
		}
	})
}

func TestReviewScenario(t *testing.T) {
	now := t0
	s := New(func() time.Time { return now })
	card := domain.NewCard("apple", "pomme", t0)

	if !IsDue(card, t0) {
		t.Fatal("Expected the new card to be due at T0")
	}

	now = t0.Add(time.Minute)
	log := s.Review(card, domain.Success)
	if card.Level != 1 || log.Level != 1 {
		t.Fatalf("Expected level 1, but got %d (log %d)", card.Level, log.Level)
	}
	if due := DueDate(card); !due.Equal(now.Add(clock.Day)) {
		t.Errorf("Expected due one day after the review, but got %v", due)
	}

	failedAt := t0.Add(2 * time.Minute)
	now = failedAt
	log = s.Review(card, domain.Failure)
	if card.Level != 0 || card.RepetitionCount != 2 {
		t.Errorf("Expected level 0 and 2 repetitions, but got %d and %d", card.Level, card.RepetitionCount)
	}
	if !log.ReviewedAt.Equal(failedAt) || log.Outcome != domain.Failure {
		t.Errorf("Expected failure logged at %v, but got %v at %v", failedAt, log.Outcome, log.ReviewedAt)
	}
	if !IsDue(card, failedAt) {
		t.Error("Expected the card to be due immediately after a failure")
	}
}

func TestDueCards(t *testing.T) {
	now := t0.Add(30 * clock.Day)

	reviewed := domain.NewCard("bike", "vélo", t0)
	reviewed.Level = 1
	reviewed.UpdatedAt = now.Add(-10 * clock.Day)

	fresh := domain.NewCard("apple", "pomme", now)

	notYet := domain.NewCard("beach", "plage", t0)
	notYet.Level = 5
	notYet.UpdatedAt = now.Add(-clock.Day)

	t.Run("both due in insertion order", func(t *testing.T) {
		due := DueCards([]*domain.Card{reviewed, fresh}, now)
		if len(due) != 2 || due[0] != reviewed || due[1] != fresh {
			t.Fatalf("Expected [bike apple], but got %v", words(due))
		}
	})

	t.Run("excludes cards not yet due", func(t *testing.T) {
		due := DueCards([]*domain.Card{notYet, fresh, reviewed}, now)
		if got := words(due); len(got) != 2 || got[0] != "apple" || got[1] != "bike" {
			t.Errorf("Expected [apple bike], but got %v", got)
		}
	})

	t.Run("empty collection", func(t *testing.T) {
		due := DueCards(nil, now)
		if due == nil || len(due) != 0 {
			t.Errorf("Expected an empty result, but got %v", due)
		}
	})

	t.Run("query does not mutate", func(t *testing.T) {
		before := *notYet
		DueCards([]*domain.Card{notYet}, now)
		if *notYet != before {
			t.Errorf("Expected card to be unchanged, but got %+v", *notYet)
		}
	})
}

func TestSchedulerDue(t *testing.T) {
	s := New(clock.Fixed(t0))
	person := domain.NewPerson("Julien", domain.FR, domain.EN)
	person.AddCard(domain.NewCard("bike", "vélo", t0))
	person.AddCard(domain.NewCard("apple", "pomme", t0.Add(time.Hour)))

	due := s.Due(person.Cards)
	if len(due) != 1 || due[0].InputWord != "bike" {
		t.Errorf("Expected only 'bike' to be due, but got %v", words(due))
	}
}

func words(cards []*domain.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.InputWord
	}
	return out
}
