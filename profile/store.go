// Package profile persists dispatch-profile snapshots across runs in
// an embedded SQLite database, one row per dispatch cell per session.
package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"

	"github.com/pyrite-lang/pyrite/runtime/snapshot"
)

var log = commonlog.GetLogger("pyrite.profile")

// ErrSessionNotFound indicates the requested session doesn't exist.
var ErrSessionNotFound = errors.New("session not found")

// Store handles SQLite storage for dispatch profiles.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if necessary) the profile database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sites (
		session_id TEXT NOT NULL,
		pc INTEGER NOT NULL,
		op TEXT NOT NULL,
		state TEXT NOT NULL,
		hits INTEGER NOT NULL,
		misses INTEGER NOT NULL,
		installs INTEGER NOT NULL,
		PRIMARY KEY (session_id, pc)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sites table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewSessionID mints a fresh session identity.
func NewSessionID() string {
	return uuid.NewString()
}

// Save persists one captured profile under its session identity,
// replacing any earlier rows for the same session.
func (s *Store) Save(p *snapshot.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO sessions (id, created_at) VALUES (?, ?)",
		p.Session, p.CreatedAt,
	); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM sites WHERE session_id = ?", p.Session,
	); err != nil {
		return fmt.Errorf("clearing session sites: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO sites
		(session_id, pc, op, state, hits, misses, installs)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing site insert: %w", err)
	}
	defer stmt.Close()

	for _, site := range p.Sites {
		if _, err := stmt.Exec(
			p.Session, site.PC, site.Op, site.State,
			site.Hits, site.Misses, site.Installs,
		); err != nil {
			return fmt.Errorf("saving site pc=%d: %w", site.PC, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	log.Debugf("saved session %s (%d sites)", p.Session, len(p.Sites))
	return nil
}

// Load retrieves a session's profile.
func (s *Store) Load(session string) (*snapshot.Profile, error) {
	p := &snapshot.Profile{Session: session}

	err := s.db.QueryRow(
		"SELECT created_at FROM sessions WHERE id = ?", session,
	).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}

	rows, err := s.db.Query(`SELECT pc, op, state, hits, misses, installs
		FROM sites WHERE session_id = ? ORDER BY pc`, session)
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r snapshot.SiteRecord
		if err := rows.Scan(
			&r.PC, &r.Op, &r.State, &r.Hits, &r.Misses, &r.Installs,
		); err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		p.Sites = append(p.Sites, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sites: %w", err)
	}
	return p, nil
}

// Sessions lists stored session identities, newest first.
func (s *Store) Sessions() ([]string, error) {
	rows, err := s.db.Query(
		"SELECT id FROM sessions ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}
	return ids, nil
}

// Delete removes a session and its sites.
func (s *Store) Delete(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"DELETE FROM sites WHERE session_id = ?", session); err != nil {
		return fmt.Errorf("deleting sites: %w", err)
	}
	if _, err := s.db.Exec(
		"DELETE FROM sessions WHERE id = ?", session); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
