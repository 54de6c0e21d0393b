package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/vocabox/internal/cardhash"
	"github.com/conorfennell/vocabox/internal/domain"
)

var t0 = time.Date(2017, time.July, 14, 2, 40, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "vocabox.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ensureJulien(t *testing.T, db *DB) *domain.Person {
	t.Helper()
	p, err := db.EnsurePerson(context.Background(), domain.NewPerson("julien", domain.FR, domain.EN))
	if err != nil {
		t.Fatalf("EnsurePerson() returned an unexpected error: %v", err)
	}
	return p
}

func newCard(word, translation string) *domain.Card {
	c := domain.NewCard(word, translation, t0)
	c.Hash = cardhash.Hash(c)
	return c
}

func TestEnsurePerson(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := ensureJulien(t, db)
	if first.ID == 0 {
		t.Fatal("Expected a person ID to be assigned")
	}

	again, err := db.EnsurePerson(ctx, domain.NewPerson("julien", domain.EN, domain.FR))
	if err != nil {
		t.Fatalf("EnsurePerson() returned an unexpected error: %v", err)
	}
	if again.ID != first.ID || again.Speak != domain.FR {
		t.Errorf("Expected the stored person %d speaking fr, but got %d speaking %s", first.ID, again.ID, again.Speak)
	}

	missing, err := db.FindPersonByName(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("Expected (nil, nil) for a missing person, but got (%v, %v)", missing, err)
	}
}

func TestCards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := ensureJulien(t, db)

	words := []string{"bike", "apple", "beach"}
	for _, w := range words {
		if err := db.InsertCard(ctx, p.ID, newCard(w, w+"-fr"), 0); err != nil {
			t.Fatalf("InsertCard(%s) returned an unexpected error: %v", w, err)
		}
	}

	t.Run("list keeps insertion order", func(t *testing.T) {
		cards, err := db.ListCards(ctx, p.ID)
		if err != nil {
			t.Fatalf("ListCards() returned an unexpected error: %v", err)
		}
		if len(cards) != len(words) {
			t.Fatalf("Expected %d cards, but got %d", len(words), len(cards))
		}
		for i, w := range words {
			if cards[i].InputWord != w {
				t.Errorf("Expected card %d to be '%s', but got '%s'", i, w, cards[i].InputWord)
			}
		}
		if !cards[0].CreatedAt.Equal(t0) || !cards[0].UpdatedAt.Equal(t0) {
			t.Errorf("Expected timestamps %v, but got %v and %v", t0, cards[0].CreatedAt, cards[0].UpdatedAt)
		}
	})

	t.Run("duplicate hash is rejected", func(t *testing.T) {
		if err := db.InsertCard(ctx, p.ID, newCard("Bike", "bike-fr"), 0); err == nil {
			t.Error("Expected an error when inserting the same card twice")
		}
	})

	t.Run("find by hash", func(t *testing.T) {
		want := newCard("apple", "apple-fr")
		card, err := db.FindCardByHash(ctx, p.ID, want.Hash)
		if err != nil || card == nil {
			t.Fatalf("Expected to find the card, but got (%v, %v)", card, err)
		}
		if card.InputWord != "apple" {
			t.Errorf("Expected 'apple', but got '%s'", card.InputWord)
		}

		missing, err := db.FindCardByHash(ctx, p.ID, "nope")
		if err != nil || missing != nil {
			t.Errorf("Expected (nil, nil) for a missing card, but got (%v, %v)", missing, err)
		}
	})
}

func TestRecordReview(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := ensureJulien(t, db)

	card := newCard("bike", "vélo")
	if err := db.InsertCard(ctx, p.ID, card, 0); err != nil {
		t.Fatalf("InsertCard() returned an unexpected error: %v", err)
	}

	reviewedAt := t0.Add(time.Hour)
	card.Revise(domain.Success, reviewedAt)
	log := domain.ReviewLog{CardID: card.ID, Outcome: domain.Success, Level: card.Level, ReviewedAt: reviewedAt}
	if err := db.RecordReview(ctx, card, log); err != nil {
		t.Fatalf("RecordReview() returned an unexpected error: %v", err)
	}

	stored, err := db.FindCardByHash(ctx, p.ID, card.Hash)
	if err != nil || stored == nil {
		t.Fatalf("Expected to find the card, but got (%v, %v)", stored, err)
	}
	if stored.Level != 1 || stored.RepetitionCount != 1 || !stored.UpdatedAt.Equal(reviewedAt) {
		t.Errorf("Expected level 1, 1 repetition at %v, but got %d, %d at %v",
			reviewedAt, stored.Level, stored.RepetitionCount, stored.UpdatedAt)
	}

	logs, err := db.ListReviews(ctx, card.ID)
	if err != nil {
		t.Fatalf("ListReviews() returned an unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].Outcome != domain.Success || logs[0].Level != 1 {
		t.Errorf("Expected one success at level 1, but got %+v", logs)
	}

	ghost := newCard("ghost", "fantôme")
	ghost.ID = 999
	if err := db.RecordReview(ctx, ghost, log); err == nil {
		t.Error("Expected an error when reviewing a card that is not stored")
	}
}

func TestSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := ensureJulien(t, db)

	id, err := db.InsertSource(ctx, p.ID, "/tmp/words", "local")
	if err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}

	card := newCard("bike", "vélo")
	if err := db.InsertCard(ctx, p.ID, card, id); err != nil {
		t.Fatalf("InsertCard() returned an unexpected error: %v", err)
	}

	bySource, err := db.ListCardsBySource(ctx, id)
	if err != nil || len(bySource) != 1 {
		t.Fatalf("Expected one card for the source, but got %d (err %v)", len(bySource), err)
	}

	src, err := db.FindSourceByPath(ctx, p.ID, "/tmp/words")
	if err != nil || src == nil {
		t.Fatalf("Expected to find the source, but got (%v, %v)", src, err)
	}
	if src.LastScanned.Valid {
		t.Error("Expected a new source not to be scanned yet")
	}

	if err := db.UpdateSourceLastScanned(ctx, id, t0); err != nil {
		t.Fatalf("UpdateSourceLastScanned() returned an unexpected error: %v", err)
	}
	sources, err := db.ListSources(ctx, p.ID)
	if err != nil || len(sources) != 1 {
		t.Fatalf("Expected one source, but got %d (err %v)", len(sources), err)
	}
	if !sources[0].LastScanned.Valid || !sources[0].LastScanned.Time.Equal(t0) {
		t.Errorf("Expected last scanned %v, but got %+v", t0, sources[0].LastScanned)
	}

	if err := db.DeleteSource(ctx, p.ID, id); err != nil {
		t.Fatalf("DeleteSource() returned an unexpected error: %v", err)
	}
	cards, err := db.ListCards(ctx, p.ID)
	if err != nil || len(cards) != 1 {
		t.Errorf("Expected the card to survive its source, but got %d cards (err %v)", len(cards), err)
	}

	if err := db.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard() returned an unexpected error: %v", err)
	}
	cards, err = db.ListCards(ctx, p.ID)
	if err != nil || len(cards) != 0 {
		t.Errorf("Expected no cards after delete, but got %d (err %v)", len(cards), err)
	}
}

func TestMoveCard(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := ensureJulien(t, db)

	first, _ := db.InsertSource(ctx, p.ID, "/tmp/first", "local")
	second, _ := db.InsertSource(ctx, p.ID, "/tmp/second", "local")

	card := newCard("apple", "pomme")
	if err := db.InsertCard(ctx, p.ID, card, first); err != nil {
		t.Fatalf("InsertCard() returned an unexpected error: %v", err)
	}
	card.Revise(domain.Success, t0.Add(time.Hour))
	if err := db.RecordReview(ctx, card, domain.ReviewLog{CardID: card.ID, Outcome: domain.Success, Level: card.Level, ReviewedAt: card.UpdatedAt}); err != nil {
		t.Fatalf("RecordReview() returned an unexpected error: %v", err)
	}

	if err := db.MoveCard(ctx, card.ID, second); err != nil {
		t.Fatalf("MoveCard() returned an unexpected error: %v", err)
	}

	if cards, _ := db.ListCardsBySource(ctx, first); len(cards) != 0 {
		t.Errorf("Expected no cards left in the first source, but got %d", len(cards))
	}
	cards, err := db.ListCardsBySource(ctx, second)
	if err != nil || len(cards) != 1 {
		t.Fatalf("Expected one card in the second source, but got %d (err %v)", len(cards), err)
	}
	if cards[0].Level != 1 || cards[0].RepetitionCount != 1 {
		t.Errorf("Expected the moved card to keep level 1, but got %+v", cards[0])
	}
}
