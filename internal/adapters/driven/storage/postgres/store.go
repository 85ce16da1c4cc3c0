package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.ArtifactStore     = (*Store)(nil)
	_ driven.VectorStore       = (*Store)(nil)
	_ driven.ConversationStore = (*Store)(nil)
)

// undefinedTable is the SQLSTATE raised for a missing relation.
const undefinedTable = "42P01"

// Store is a Postgres-backed artifact, vector and conversation store.
type Store struct {
	db         *sql.DB
	dimensions int
}

// Option configures the store.
type Option func(*options)

type options struct {
	dimensions  int
	autoMigrate bool
}

// WithDimensions sets the vector column size. Zero leaves it unconstrained.
func WithDimensions(n int) Option {
	return func(o *options) {
		o.dimensions = n
	}
}

// WithAutoMigrate controls whether Provision runs on open.
func WithAutoMigrate(enabled bool) Option {
	return func(o *options) {
		o.autoMigrate = enabled
	}
}

// NewStore connects to databaseURL and applies the relational schema.
func NewStore(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	o := options{autoMigrate: true}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, dimensions: o.dimensions}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if o.autoMigrate {
		if err := s.Provision(ctx); err != nil {
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

// Dimensions returns the vector size the store accepts.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Provision enables pgvector and creates the embeddings table.
func (s *Store) Provision(ctx context.Context) error {
	for _, stmt := range vectorDDL(s.dimensions) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("provisioning vector table: %w", err)
		}
	}
	return nil
}

// Provisioned reports whether the embeddings table exists.
func (s *Store) Provisioned(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT to_regclass('embeddings') IS NOT NULL").Scan(&exists); err != nil {
		return false, fmt.Errorf("checking vector table: %w", err)
	}
	return exists, nil
}

// vectorDDL returns the statements that provision vector storage.
// The HNSW index needs a fixed dimension and is skipped without one.
func vectorDDL(dimensions int) []string {
	column := "vector"
	if dimensions > 0 {
		column = fmt.Sprintf("vector(%d)", dimensions)
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS embeddings (
			chunk_id   TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
			vector     ` + column + ` NOT NULL,
			model      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	if dimensions > 0 {
		stmts = append(stmts,
			"CREATE INDEX IF NOT EXISTS idx_embeddings_vector ON embeddings USING hnsw (vector vector_cosine_ops)")
	}
	return stmts
}

// migrate runs all pending numbered migrations and records each version.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
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
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// isUndefinedTable reports whether err is SQLSTATE 42P01.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == undefinedTable
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
