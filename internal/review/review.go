// Package review runs study sessions for one person on top of a card store:
// it picks the cards that are due, applies review outcomes and persists them.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/conorfennell/vocabox/internal/cardhash"
	"github.com/conorfennell/vocabox/internal/clock"
	"github.com/conorfennell/vocabox/internal/domain"
	"github.com/conorfennell/vocabox/internal/schedule"
)

var (
	ErrCardNotFound  = errors.New("card not found")
	ErrDuplicateCard = errors.New("card already exists")
	ErrEmptyWord     = errors.New("card word is empty")
)

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	InsertCard(ctx context.Context, personID int64, card *domain.Card, sourceID int64) error
	FindCardByHash(ctx context.Context, personID int64, hash string) (*domain.Card, error)
	ListCards(ctx context.Context, personID int64) ([]*domain.Card, error)
	RecordReview(ctx context.Context, card *domain.Card, log domain.ReviewLog) error
}

// Service reviews the cards of a single person. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex // serializes Add and Answer read-modify-write cycles

	store     Store
	personID  int64
	scheduler *schedule.Scheduler
	logger    *slog.Logger
}

// NewService creates a Service. A nil clock means the system clock and a nil
// logger means slog.Default().
func NewService(store Store, personID int64, now clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		personID:  personID,
		scheduler: schedule.New(now),
		logger:    logger,
	}
}

// Add creates a new level 0 card. Adding a card whose normalized text is
// already in the deck returns ErrDuplicateCard.
func (s *Service) Add(ctx context.Context, inputWord, translation string) (*domain.Card, error) {
	if strings.TrimSpace(inputWord) == "" {
		return nil, ErrEmptyWord
	}
	card := domain.NewCard(inputWord, translation, s.scheduler.Now())
	card.Hash = cardhash.Hash(card)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.FindCardByHash(ctx, s.personID, card.Hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, inputWord)
	}
	if err := s.store.InsertCard(ctx, s.personID, card, 0); err != nil {
		return nil, err
	}
	s.logger.Info("Card added", "hash", card.Hash, "word", card.InputWord)
	return card, nil
}

// Cards returns every card of the person in insertion order.
func (s *Service) Cards(ctx context.Context) ([]*domain.Card, error) {
	return s.store.ListCards(ctx, s.personID)
}

// Due returns the cards that are reviewable now, in insertion order.
func (s *Service) Due(ctx context.Context) ([]*domain.Card, error) {
	cards, err := s.store.ListCards(ctx, s.personID)
	if err != nil {
		return nil, err
	}
	return s.scheduler.Due(cards), nil
}

// Next returns the first due card, or nil when nothing is due.
func (s *Service) Next(ctx context.Context) (*domain.Card, error) {
	due, err := s.Due(ctx)
	if err != nil || len(due) == 0 {
		return nil, err
	}
	return due[0], nil
}

// Find returns the card with the given hash or ErrCardNotFound.
func (s *Service) Find(ctx context.Context, hash string) (*domain.Card, error) {
	card, err := s.store.FindCardByHash(ctx, s.personID, hash)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, hash)
	}
	return card, nil
}

// Answer applies a review outcome to the card with the given hash and saves
// the new state along with a review log entry. Concurrent answers to the same
// card are applied one after the other.
func (s *Service) Answer(ctx context.Context, hash string, outcome domain.Outcome) (*domain.Card, error) {
	if !outcome.IsValid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidOutcome, int(outcome))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	card, err := s.Find(ctx, hash)
	if err != nil {
		return nil, err
	}

	log := s.scheduler.Review(card, outcome)
	if err := s.store.RecordReview(ctx, card, log); err != nil {
		return nil, err
	}
	s.logger.Info("Card reviewed",
		"hash", card.Hash,
		"outcome", outcome,
		"level", card.Level,
		"repetitions", card.RepetitionCount,
		"due", schedule.DueDate(card),
	)
	return card, nil
}
