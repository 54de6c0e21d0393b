package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/vocabox/internal/clock"
	"github.com/conorfennell/vocabox/internal/domain"
	"github.com/conorfennell/vocabox/internal/review"
	"github.com/conorfennell/vocabox/internal/schedule"
	"github.com/conorfennell/vocabox/internal/storage"
	"github.com/conorfennell/vocabox/internal/sync"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Reviewer runs the study session. *review.Service implements it.
type Reviewer interface {
	Add(ctx context.Context, inputWord, translation string) (*domain.Card, error)
	Cards(ctx context.Context) ([]*domain.Card, error)
	Due(ctx context.Context) ([]*domain.Card, error)
	Next(ctx context.Context) (*domain.Card, error)
	Find(ctx context.Context, hash string) (*domain.Card, error)
	Answer(ctx context.Context, hash string, outcome domain.Outcome) (*domain.Card, error)
}

// SourceStore manages where cards are imported from. *storage.DB implements it.
type SourceStore interface {
	ListSources(ctx context.Context, personID int64) ([]storage.Source, error)
	InsertSource(ctx context.Context, personID int64, path, sourceType string) (int64, error)
	DeleteSource(ctx context.Context, personID, sourceID int64) error
}

// Syncer imports cards from the sources. *sync.Syncer implements it.
type Syncer interface {
	Run(ctx context.Context, personID int64) (*sync.Report, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	reviews   Reviewer
	sources   SourceStore
	syncer    Syncer
	personID  int64
	now       clock.Clock
	logger    *slog.Logger
	router    *http.ServeMux
	templates *template.Template
}

// NewServer creates and configures a new server for one person's deck.
func NewServer(reviews Reviewer, sources SourceStore, syncer Syncer, personID int64, now clock.Clock, logger *slog.Logger) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		reviews:   reviews,
		sources:   sources,
		syncer:    syncer,
		personID:  personID,
		now:       clock.OrSystem(now),
		logger:    logger,
		router:    http.NewServeMux(),
		templates: tpl,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /{$}", s.handleIndex())

	// HTMX-based routes
	s.router.HandleFunc("GET /deck", s.handleGetDeck())
	s.router.HandleFunc("GET /review/next", s.handleGetNextReview())
	s.router.HandleFunc("GET /review/answer/{hash}", s.handleShowAnswer())
	s.router.HandleFunc("POST /review/{hash}", s.handlePostReview())

	// Card management routes
	s.router.HandleFunc("GET /cards", s.handleGetCards())
	s.router.HandleFunc("POST /cards", s.handlePostCard())

	// Source management routes
	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

// render executes a template into a buffer so a failing template still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, names []string, data any) {
	var buf bytes.Buffer
	for _, name := range names {
		if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
			s.logger.Error("Error rendering template", "template", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, []string{"index"}, nil)
	}
}

// handleGetDeck renders the deck view, showing the number of due cards.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderDeck(w, r)
	}
}

func (s *Server) renderDeck(w http.ResponseWriter, r *http.Request) {
	cards, err := s.reviews.Cards(r.Context())
	if err != nil {
		s.internalError(w, "Error getting cards for deck view", err)
		return
	}
	due := schedule.DueCards(cards, s.now())
	s.render(w, http.StatusOK, []string{"deck"}, map[string]any{
		"Total":       len(cards),
		"DueCount":    len(due),
		"HasDueCards": len(due) > 0,
	})
}

// handleGetNextReview renders the front of the next due card.
func (s *Server) handleGetNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderNext(w, r)
	}
}

func (s *Server) renderNext(w http.ResponseWriter, r *http.Request) {
	next, err := s.reviews.Next(r.Context())
	if err != nil {
		s.internalError(w, "Error getting next due card", err)
		return
	}
	if next == nil {
		s.renderDeck(w, r)
		return
	}
	s.render(w, http.StatusOK, []string{"card_front"}, next)
}

// handleShowAnswer renders the back of a card.
func (s *Server) handleShowAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.reviews.Find(r.Context(), r.PathValue("hash"))
		if errors.Is(err, review.ErrCardNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.internalError(w, "Error finding card", err)
			return
		}
		s.render(w, http.StatusOK, []string{"card_back"}, card)
	}
}

// handlePostReview applies the outcome and renders the next card.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := domain.ParseOutcome(r.PostFormValue("outcome"))
		if err != nil {
			http.Error(w, "Invalid outcome", http.StatusBadRequest)
			return
		}

		hash := r.PathValue("hash")
		if _, err := s.reviews.Answer(r.Context(), hash, outcome); err != nil {
			if errors.Is(err, review.ErrCardNotFound) {
				http.NotFound(w, r)
				return
			}
			s.logger.Error("Error reviewing card", "hash", hash, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// After review, show the next card
		s.renderNext(w, r)
	}
}

type cardView struct {
	Card    *domain.Card
	DueDate time.Time
	Due     bool
}

func (s *Server) cardList(ctx context.Context) (map[string]any, error) {
	cards, err := s.reviews.Cards(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := lo.Map(cards, func(c *domain.Card, _ int) cardView {
		return cardView{Card: c, DueDate: schedule.DueDate(c), Due: schedule.IsDue(c, now)}
	})
	return map[string]any{"Cards": views}, nil
}

// handleGetCards lists every card with its level and due date.
func (s *Server) handleGetCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.cardList(r.Context())
		if err != nil {
			s.internalError(w, "Error listing cards", err)
			return
		}
		s.render(w, http.StatusOK, []string{"cards"}, data)
	}
}

// handlePostCard adds a card and re-renders the card list.
func (s *Server) handlePostCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := s.reviews.Add(r.Context(), r.PostFormValue("word"), r.PostFormValue("translation"))
		switch {
		case errors.Is(err, review.ErrEmptyWord):
			http.Error(w, "Word cannot be empty", http.StatusBadRequest)
			return
		case errors.Is(err, review.ErrDuplicateCard):
			http.Error(w, "Card already exists", http.StatusConflict)
			return
		case err != nil:
			s.internalError(w, "Error adding card", err)
			return
		}

		data, err := s.cardList(r.Context())
		if err != nil {
			s.internalError(w, "Error listing cards after add", err)
			return
		}
		s.render(w, http.StatusCreated, []string{"card_list"}, data)
	}
}

func (s *Server) sourceList(ctx context.Context) (map[string]any, error) {
	sources, err := s.sources.ListSources(ctx, s.personID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Sources": sources}, nil
}

// handleGetSources renders the main sources management page.
func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.sourceList(r.Context())
		if err != nil {
			s.internalError(w, "Error getting sources", err)
			return
		}
		s.render(w, http.StatusOK, []string{"sources"}, data)
	}
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSpace(r.PostFormValue("path"))
		if path == "" {
			http.Error(w, "Path cannot be empty", http.StatusBadRequest)
			return
		}

		if _, err := s.sources.InsertSource(r.Context(), s.personID, path, sync.DetectType(path)); err != nil {
			s.internalError(w, "Error inserting new source", err)
			return
		}

		data, err := s.sourceList(r.Context())
		if err != nil {
			s.internalError(w, "Error getting sources after add", err)
			return
		}
		s.render(w, http.StatusOK, []string{"source_list"}, data)
	}
}

// handleDeleteSource deletes a source and re-renders the source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.sources.DeleteSource(r.Context(), s.personID, id); err != nil {
			s.internalError(w, "Error deleting source", err)
			return
		}

		data, err := s.sourceList(r.Context())
		if err != nil {
			s.internalError(w, "Error getting sources after delete", err)
			return
		}
		s.render(w, http.StatusOK, []string{"source_list"}, data)
	}
}

// handlePostSync runs a sync in the foreground and re-renders the source list.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.syncer.Run(r.Context(), s.personID)
		if err != nil {
			s.internalError(w, "Error running sync", err)
			return
		}

		data, err := s.sourceList(r.Context())
		if err != nil {
			s.internalError(w, "Error getting sources after sync", err)
			return
		}
		data["Inserted"] = report.Inserted
		data["Deleted"] = report.Deleted
		data["Errors"] = report.Errors
		s.render(w, http.StatusOK, []string{"sync_success", "source_list"}, data)
	}
}
