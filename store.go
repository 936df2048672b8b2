package staticpress

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested page or build does not exist.
var ErrNotFound = sql.ErrNoRows

// Store wraps a SQLite database holding generated pages and build history.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations. The path ":memory:" opens a
// private in-memory database.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the page server read while a build writes; the busy timeout
	// makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    route TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    slug TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    content_type TEXT NOT NULL,
    body BLOB NOT NULL,
    generated_at INTEGER NOT NULL,
    revalidate_ms INTEGER NOT NULL,
    load_status INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    pages INTEGER NOT NULL,
    not_found INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    broken_links INTEGER NOT NULL,
    output_dir TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS builds_started_at ON builds (started_at DESC);
`)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`ALTER TABLE builds ADD COLUMN errors TEXT NOT NULL DEFAULT '';`); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

// SavePage upserts a generated page.
func (s *Store) SavePage(p Page) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO pages (route, kind, slug, status_code, content_type, body, generated_at, revalidate_ms, load_status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Route.Path(), string(p.Route.Kind), p.Route.Slug, p.StatusCode, p.ContentType, p.Body,
		p.GeneratedAt.UnixMilli(), p.Revalidate.Milliseconds(), int(p.Load))
	if err != nil {
		return fmt.Errorf("save page %s: %w", p.Route, err)
	}
	return nil
}

// GetPage returns the stored page for r.
func (s *Store) GetPage(r Route) (Page, error) {
	row := s.db.QueryRow(`SELECT kind, slug, status_code, content_type, body, generated_at, revalidate_ms, load_status FROM pages WHERE route = ?`, r.Path())
	return scanPage(row)
}

// ListPages returns every stored page ordered by route.
func (s *Store) ListPages() ([]Page, error) {
	rows, err := s.db.Query(`SELECT kind, slug, status_code, content_type, body, generated_at, revalidate_ms, load_status FROM pages ORDER BY route`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(sc scanner) (Page, error) {
	var (
		kind, slug, contentType string
		code, loadStatus        int
		body                    []byte
		generatedMS, windowMS   int64
	)
	if err := sc.Scan(&kind, &slug, &code, &contentType, &body, &generatedMS, &windowMS, &loadStatus); err != nil {
		return Page{}, err
	}
	return Page{
		Route:       Route{Kind: Kind(kind), Slug: slug},
		StatusCode:  code,
		ContentType: contentType,
		Body:        body,
		GeneratedAt: time.UnixMilli(generatedMS).UTC(),
		Revalidate:  time.Duration(windowMS) * time.Millisecond,
		Load:        Status(loadStatus),
	}, nil
}

// DeletePage removes the stored page for r.
func (s *Store) DeletePage(r Route) error {
	_, err := s.db.Exec(`DELETE FROM pages WHERE route = ?`, r.Path())
	return err
}

// DeleteAllPages removes every stored page.
func (s *Store) DeleteAllPages() error {
	_, err := s.db.Exec(`DELETE FROM pages`)
	return err
}

// SaveBuild records a finished build.
func (s *Store) SaveBuild(r BuildReport) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO builds (id, started_at, duration_ms, pages, not_found, failed, broken_links, output_dir, errors) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.Duration.Milliseconds(), r.Pages, r.NotFound, r.Failed,
		len(r.BrokenLinks), r.OutputDir, strings.Join(r.Errors, "\n"))
	if err != nil {
		return fmt.Errorf("save build %s: %w", r.ID, err)
	}
	return nil
}

// ListBuilds returns the most recent builds, newest first. Only the count of
// broken links is stored, so BrokenLinks holds placeholders of that length.
func (s *Store) ListBuilds(limit int) ([]BuildReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, started_at, duration_ms, pages, not_found, failed, broken_links, output_dir, errors FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []BuildReport
	for rows.Next() {
		var (
			r                     BuildReport
			startedMS, durationMS int64
			broken                int
			errs                  string
		)
		if err := rows.Scan(&r.ID, &startedMS, &durationMS, &r.Pages, &r.NotFound, &r.Failed, &broken, &r.OutputDir, &errs); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(startedMS).UTC()
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.BrokenLinks = make([]BrokenLink, broken)
		if errs != "" {
			r.Errors = strings.Split(errs, "\n")
		}
		builds = append(builds, r)
	}
	return builds, rows.Err()
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
