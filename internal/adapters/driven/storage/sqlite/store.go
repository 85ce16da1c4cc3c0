package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.ArtifactStore     = (*Store)(nil)
	_ driven.VectorStore       = (*Store)(nil)
	_ driven.ConversationStore = (*Store)(nil)
)

// vectorTable is the table created by Provision.
const vectorTable = "embeddings"

// Store is a SQLite-backed artifact, vector and conversation store.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int

	// vectorsReady caches a positive provisioning check.
	vectorsReady atomic.Bool
}

// Option configures the store.
type Option func(*options)

type options struct {
	dimensions  int
	autoMigrate bool
}

// WithDimensions sets the vector size the store accepts.
// Zero accepts any size.
func WithDimensions(n int) Option {
	return func(o *options) {
		o.dimensions = n
	}
}

// WithAutoMigrate controls whether the embeddings table is created on open.
func WithAutoMigrate(enabled bool) Option {
	return func(o *options) {
		o.autoMigrate = enabled
	}
}

// NewStore opens the database in dataDir, applying pending migrations.
// If dataDir is empty, defaults to ~/.kacey/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	o := options{autoMigrate: true}
	for _, opt := range opts {
		opt(&o)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kacey", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kacey.db")

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		dimensions: o.dimensions,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if o.autoMigrate {
		if err := s.Provision(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Dimensions returns the vector size the store accepts.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Provision creates the embeddings table. Safe to call repeatedly.
func (s *Store) Provision(ctx context.Context) error {
	ddl, err := fs.ReadFile(migrations.FS, "vectors.sql")
	if err != nil {
		return fmt.Errorf("reading vector schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("provisioning vector table: %w", err)
	}
	s.vectorsReady.Store(true)
	return nil
}

// Provisioned reports whether the embeddings table exists.
func (s *Store) Provisioned(ctx context.Context) (bool, error) {
	if s.vectorsReady.Load() {
		return true, nil
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", vectorTable).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking vector table: %w", err)
	}
	if n > 0 {
		s.vectorsReady.Store(true)
	}
	return n > 0, nil
}

// migrate runs all pending numbered migrations and records each version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
