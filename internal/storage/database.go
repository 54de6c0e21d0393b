package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/vocabox/internal/domain"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer, and the foreign_keys pragma is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsurePerson returns the person with the given name, creating them when
// missing. An existing person keeps their stored language pair.
func (db *DB) EnsurePerson(ctx context.Context, p *domain.Person) (*domain.Person, error) {
	existing, err := db.FindPersonByName(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO people (name, speak, learn)
		VALUES (?, ?, ?)
	`, p.Name, string(p.Speak), string(p.Learn))
	if err != nil {
		return nil, fmt.Errorf("failed to insert person %s: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for person %s: %w", p.Name, err)
	}
	return &domain.Person{ID: id, Name: p.Name, Speak: p.Speak, Learn: p.Learn, Cards: []*domain.Card{}}, nil
}

// FindPersonByName retrieves a person without their cards.
func (db *DB) FindPersonByName(ctx context.Context, name string) (*domain.Person, error) {
	var p domain.Person
	var speak, learn string
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, speak, learn
		FROM people WHERE name = ?
	`, name)

	if err := row.Scan(&p.ID, &p.Name, &speak, &learn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Person not found
		}
		return nil, fmt.Errorf("failed to find person by name %s: %w", name, err)
	}
	p.Speak, p.Learn = domain.Lang(speak), domain.Lang(learn)
	p.Cards = []*domain.Card{}
	return &p, nil
}

const cardColumns = `id, hash, input_word, translation, level, repetition_count, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*domain.Card, error) {
	var c domain.Card
	err := row.Scan(
		&c.ID,
		&c.Hash,
		&c.InputWord,
		&c.Translation,
		&c.Level,
		&c.RepetitionCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCard stores a new card for a person and sets its ID.
// sourceID is zero for cards that were not imported from a source.
func (db *DB) InsertCard(ctx context.Context, personID int64, card *domain.Card, sourceID int64) error {
	source := sql.NullInt64{Int64: sourceID, Valid: sourceID != 0}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (person_id, hash, input_word, translation, level, repetition_count, created_at, updated_at, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		personID,
		card.Hash,
		card.InputWord,
		card.Translation,
		card.Level,
		card.RepetitionCount,
		card.CreatedAt,
		card.UpdatedAt,
		source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for card %s: %w", card.Hash, err)
	}
	card.ID = id
	return nil
}

// FindCardByHash retrieves one of a person's cards by its hash.
func (db *DB) FindCardByHash(ctx context.Context, personID int64, hash string) (*domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE person_id = ? AND hash = ?
	`, personID, hash)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return card, nil
}

// ListCards retrieves all of a person's cards in insertion order.
func (db *DB) ListCards(ctx context.Context, personID int64) ([]*domain.Card, error) {
	return db.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE person_id = ?
		ORDER BY id
	`, personID)
}

// ListCardsBySource retrieves all cards imported from a specific source.
func (db *DB) ListCardsBySource(ctx context.Context, sourceID int64) ([]*domain.Card, error) {
	return db.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE source_id = ?
		ORDER BY id
	`, sourceID)
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	return cards, nil
}

// RecordReview saves a card's new leveling state and appends the review to
// the log in a single transaction.
func (db *DB) RecordReview(ctx context.Context, card *domain.Card, log domain.ReviewLog) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin review transaction for card %d: %w", card.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET level = ?, repetition_count = ?, updated_at = ?
		WHERE id = ?
	`, card.Level, card.RepetitionCount, card.UpdatedAt, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update card %d: %w", card.ID, sql.ErrNoRows)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reviews (card_id, outcome, level, reviewed_at)
		VALUES (?, ?, ?, ?)
	`, card.ID, log.Outcome.String(), log.Level, log.ReviewedAt); err != nil {
		return fmt.Errorf("failed to log review for card %d: %w", card.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for card %d: %w", card.ID, err)
	}
	return nil
}

// ListReviews retrieves the review log of a card, oldest first.
func (db *DB) ListReviews(ctx context.Context, cardID int64) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT outcome, level, reviewed_at
		FROM reviews WHERE card_id = ?
		ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var outcome string
		l := domain.ReviewLog{CardID: cardID}
		if err := rows.Scan(&outcome, &l.Level, &l.ReviewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review row for card %d: %w", cardID, err)
		}
		if l.Outcome, err = domain.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("review row for card %d: %w", cardID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteCard removes a card and its review log.
func (db *DB) DeleteCard(ctx context.Context, cardID int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID); err != nil {
		return fmt.Errorf("failed to delete card %d: %w", cardID, err)
	}
	return nil
}

// MoveCard reassigns a card to another source, keeping its review state.
func (db *DB) MoveCard(ctx context.Context, cardID, sourceID int64) error {
	if _, err := db.conn.ExecContext(ctx, `UPDATE cards SET source_id = ? WHERE id = ?`, sourceID, cardID); err != nil {
		return fmt.Errorf("failed to move card %d to source %d: %w", cardID, sourceID, err)
	}
	return nil
}

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64
	PersonID    int64
	Path        string
	Type        string // "local" or "git"
	LastScanned sql.NullTime
}

// InsertSource registers a new source for a person and returns its ID.
func (db *DB) InsertSource(ctx context.Context, personID int64, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (person_id, path, type)
		VALUES (?, ?, ?)
	`, personID, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves one of a person's sources by its path.
func (db *DB) FindSourceByPath(ctx context.Context, personID int64, path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, person_id, path, type, last_scanned
		FROM sources WHERE person_id = ? AND path = ?
	`, personID, path)

	err := row.Scan(&s.ID, &s.PersonID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// ListSources retrieves all sources of a person.
func (db *DB) ListSources(ctx context.Context, personID int64) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, person_id, path, type, last_scanned
		FROM sources WHERE person_id = ?
		ORDER BY id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.PersonID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source. Cards imported from it are kept and become
// unattached.
func (db *DB) DeleteSource(ctx context.Context, personID, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM sources
		WHERE id = ? AND person_id = ?
	`, sourceID, personID)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", sourceID, err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, scannedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, scannedAt, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
