package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/vocabox/internal/clock"
	"github.com/conorfennell/vocabox/internal/config"
	"github.com/conorfennell/vocabox/internal/domain"
	"github.com/conorfennell/vocabox/internal/review"
	"github.com/conorfennell/vocabox/internal/schedule"
	"github.com/conorfennell/vocabox/internal/storage"
	"github.com/conorfennell/vocabox/internal/sync"
	"github.com/conorfennell/vocabox/internal/web"
)

type options struct {
	addSources []string
	addCards   []string
	sync       bool
	serve      bool
}

func main() {
	flags := pflag.NewFlagSet("vocabox", pflag.ExitOnError)
	config.RegisterFlags(flags)
	var opts options
	flags.StringArrayVar(&opts.addSources, "add-source", nil, "Add a local directory or git URL as a card source (repeatable)")
	flags.StringArrayVar(&opts.addCards, "add-card", nil, "Add a card as word=translation (repeatable)")
	flags.BoolVar(&opts.sync, "sync", false, "Import cards from all sources")
	flags.BoolVar(&opts.serve, "serve", false, "Start the web server")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger, os.Stdout); err != nil {
		logger.Error("vocabox failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger, out io.Writer) error {
	db, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database opened successfully", "path", cfg.DB)

	person, err := db.EnsurePerson(ctx, domain.NewPerson(cfg.Person.Name, domain.Lang(cfg.Person.Speak), domain.Lang(cfg.Person.Learn)))
	if err != nil {
		return err
	}

	now := clock.System()
	reviews := review.NewService(db, person.ID, now, logger)
	syncer := sync.New(db, cfg.Repos, now, logger)

	for _, path := range opts.addSources {
		if err := addSource(ctx, db, person.ID, path, logger); err != nil {
			return err
		}
	}

	for _, pair := range opts.addCards {
		word, translation, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid card %q, expected word=translation", pair)
		}
		_, err := reviews.Add(ctx, strings.TrimSpace(word), strings.TrimSpace(translation))
		if errors.Is(err, review.ErrDuplicateCard) {
			logger.Warn("Card already exists, skipping", "word", word)
			continue
		}
		if err != nil {
			return err
		}
	}

	if opts.sync {
		report, err := syncer.Run(ctx, person.ID)
		if err != nil {
			return err
		}
		for _, e := range report.Errors {
			logger.Warn("Sync error", "error", e)
		}
	}

	if opts.serve {
		srv, err := web.NewServer(reviews, db, syncer, person.ID, now, logger)
		if err != nil {
			return fmt.Errorf("failed to create web server: %w", err)
		}
		return serve(ctx, cfg.Addr, srv, logger)
	}

	return printReport(ctx, out, person, reviews, now())
}

func addSource(ctx context.Context, db *storage.DB, personID int64, path string, logger *slog.Logger) error {
	existing, err := db.FindSourceByPath(ctx, personID, path)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("Source already registered", "path", path)
		return nil
	}
	sourceType := sync.DetectType(path)
	if _, err := db.InsertSource(ctx, personID, path, sourceType); err != nil {
		return err
	}
	logger.Info("Source added", "path", path, "type", sourceType)
	return nil
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting web server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// printReport prints the learner's deck and which cards are due at now.
func printReport(ctx context.Context, out io.Writer, person *domain.Person, reviews *review.Service, now time.Time) error {
	cards, err := reviews.Cards(ctx)
	if err != nil {
		return err
	}
	for _, card := range cards {
		person.AddCard(card)
	}
	due := schedule.DueCards(person.Cards, now)

	fmt.Fprintf(out, "%s (%s -> %s): %d cards, %d due.\n", person.Name, person.Speak, person.Learn, len(person.Cards), len(due))
	for _, card := range due {
		fmt.Fprintf(out, "- %s (level %d, %d repetitions)\n", card.InputWord, card.Level, card.RepetitionCount)
	}
	return nil
}
