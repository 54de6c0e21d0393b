package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/vocabox/internal/cardhash"
	"github.com/conorfennell/vocabox/internal/clock"
	"github.com/conorfennell/vocabox/internal/domain"
	"github.com/conorfennell/vocabox/internal/gitsource"
	"github.com/conorfennell/vocabox/internal/parser"
	"github.com/conorfennell/vocabox/internal/storage"
)

// Source types.
const (
	Local = "local"
	Git   = "git"
)

// DetectType guesses whether path is a git URL or a local directory. Every
// path it reports as Git can be mapped to a clone directory.
func DetectType(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return Git
	}
	if _, err := scpLikePath(path); err == nil {
		return Git
	}
	return Local
}

// Report summarizes one sync run.
type Report struct {
	Sources  int
	Parsed   int
	Inserted int
	Deleted  int
	Errors   []error
}

// Syncer reconciles a person's sources with their stored cards.
type Syncer struct {
	db       *storage.DB
	reposDir string
	now      clock.Clock
	logger   *slog.Logger
	Progress io.Writer // git clone/pull progress, nil to discard
}

// New creates a Syncer that clones git sources under reposDir.
func New(db *storage.DB, reposDir string, now clock.Clock, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:       db,
		reposDir: reposDir,
		now:      clock.OrSystem(now),
		logger:   logger,
	}
}

// Run iterates over all sources of a person and reconciles them.
// Problems with a single source are collected in the report; the returned
// error is reserved for failures that stop the whole run.
func (s *Syncer) Run(ctx context.Context, personID int64) (*Report, error) {
	s.logger.Info("Starting sync process", "person_id", personID)
	sources, err := s.db.ListSources(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	report := &Report{Sources: len(sources)}
	if len(sources) == 0 {
		s.logger.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return report, nil
	}

	scans := make([]*scan, 0, len(sources))
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.logger.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		sc := &scan{source: source, found: make(map[string]bool)}
		scans = append(scans, sc)

		dir, err := s.checkout(ctx, source)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		s.collect(ctx, personID, sc, dir, report)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	s.prune(ctx, scans, report)

	s.logger.Info("Sync process complete.",
		"sources", report.Sources,
		"parsed_cards", report.Parsed,
		"inserted", report.Inserted,
		"orphaned_deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

// scan is what one source yielded during a run. A scan is complete only when
// every file of the source was read without error.
type scan struct {
	source   storage.Source
	found    map[string]bool
	complete bool
}

// checkout returns the directory holding a source's files, cloning or
// pulling git sources first.
func (s *Syncer) checkout(ctx context.Context, source storage.Source) (string, error) {
	if source.Type != Git {
		return source.Path, nil
	}
	localRepoPath, err := gitURLToLocalPath(s.reposDir, source.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(localRepoPath), os.ModePerm); err != nil {
		return "", fmt.Errorf("creating repos directory: %w", err)
	}
	if err := gitsource.Sync(ctx, source.Path, localRepoPath, s.Progress, s.logger); err != nil {
		return "", err
	}
	return localRepoPath, nil
}

// collect parses every markdown file under dir, records the hashes found and
// inserts the cards the person does not have yet.
func (s *Syncer) collect(ctx context.Context, personID int64, sc *scan, dir string, report *Report) {
	now := s.now()
	complete := true

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path, now)
		if parseErr != nil {
			s.logger.Warn("Failed to parse file, keeping its stored cards", "path", path, "error", parseErr)
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			complete = false
		}
		for _, card := range fileCards {
			report.Parsed++
			card.Hash = cardhash.Hash(card)
			if sc.found[card.Hash] {
				continue
			}
			sc.found[card.Hash] = true

			if err := s.insertIfMissing(ctx, personID, sc.source.ID, card); err != nil {
				report.Errors = append(report.Errors, err)
			} else if card.ID != 0 {
				report.Inserted++
			}
		}
		return nil
	})

	if walkErr != nil {
		s.logger.Error("Error walking directory", "path", dir, "error", walkErr)
		report.Errors = append(report.Errors, fmt.Errorf("walking %s: %w", dir, walkErr))
		return
	}
	sc.complete = complete
}

// prune deletes stored cards that no source provides anymore. A card still
// found in another source is moved there instead. Sources whose scan was
// incomplete are left untouched, and while any scan is incomplete no card is
// deleted since it may live in the unread files.
func (s *Syncer) prune(ctx context.Context, scans []*scan, report *Report) {
	partial := false
	for _, sc := range scans {
		if !sc.complete {
			partial = true
		}
	}
	now := s.now()

	for _, sc := range scans {
		if !sc.complete {
			s.logger.Warn("Skipping orphan cleanup for incomplete source", "source_id", sc.source.ID, "path", sc.source.Path)
			continue
		}

		stored, err := s.db.ListCardsBySource(ctx, sc.source.ID)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		for _, card := range stored {
			if sc.found[card.Hash] {
				continue
			}
			if owner := providedBy(scans, card.Hash); owner != nil {
				s.logger.Info("Card moved to another source", "hash", card.Hash, "source_id", owner.source.ID)
				if err := s.db.MoveCard(ctx, card.ID, owner.source.ID); err != nil {
					report.Errors = append(report.Errors, err)
				}
				continue
			}
			if partial {
				s.logger.Info("Orphaned card kept until every source scans cleanly", "hash", card.Hash)
				continue
			}
			s.logger.Info("Orphaned card, deleting", "hash", card.Hash)
			if err := s.db.DeleteCard(ctx, card.ID); err != nil {
				s.logger.Warn("Failed to delete orphaned card", "hash", card.Hash, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Deleted++
		}

		if err := s.db.UpdateSourceLastScanned(ctx, sc.source.ID, now); err != nil {
			s.logger.Warn("Failed to update last scanned for source", "source_id", sc.source.ID, "error", err)
		}
	}
}

// providedBy returns the first complete scan that found hash.
func providedBy(scans []*scan, hash string) *scan {
	for _, sc := range scans {
		if sc.complete && sc.found[hash] {
			return sc
		}
	}
	return nil
}

// insertIfMissing stores the card unless the person already has it. The
// card's ID stays zero when nothing was inserted.
func (s *Syncer) insertIfMissing(ctx context.Context, personID, sourceID int64, card *domain.Card) error {
	existing, err := s.db.FindCardByHash(ctx, personID, card.Hash)
	if err != nil {
		return fmt.Errorf("db check for %s: %w", card.Hash, err)
	}
	if existing != nil {
		return nil
	}
	s.logger.Info("New card found, inserting...", "hash", card.Hash, "word", card.InputWord)
	if err := s.db.InsertCard(ctx, personID, card, sourceID); err != nil {
		return fmt.Errorf("db insert for %s: %w", card.Hash, err)
	}
	return nil
}

var errUnparsableURL = errors.New("could not parse git URL")

// gitURLToLocalPath maps a remote URL to <baseDir>/<host>/<repo path>.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		rel, err := scpLikePath(repoURL)
		if err != nil {
			return "", err
		}
		return filepath.Join(baseDir, rel), nil
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}

// scpLikePath maps git@host:owner/repo.git to host/owner/repo.
func scpLikePath(repoURL string) (string, error) {
	if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" && !strings.Contains(user, "/") {
		host, repoPath, ok := strings.Cut(rest, ":")
		if ok && host != "" && repoPath != "" {
			return filepath.Join(host, strings.TrimSuffix(repoPath, ".git")), nil
		}
	}
	return "", fmt.Errorf("%w: %s", errUnparsableURL, repoURL)
}
