// Package postgres stores documents as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a domain.DocumentStore over a shared *sql.DB pool.
// All collections live in the documents table, keyed by collection name.
type Store struct {
	dsn        string
	collection domain.Collection

	mu sync.RWMutex
	db *sql.DB
}

// New creates a store; call Connect before use
func New(dsn string, collection domain.Collection) *Store {
	return &Store{
		dsn:        dsn,
		collection: collection,
	}
}

// Connect opens the pool, validates connectivity and applies migrations
func (s *Store) Connect(ctx context.Context) error {
	if s.dsn == "" {
		return errors.New("postgres dsn is empty")
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return err
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *Store) pool() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, domain.ErrNotConnected
	}
	return s.db, nil
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.pool()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// InsertMany inserts every document inside one transaction
func (s *Store) InsertMany(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return domain.ErrEmptyBatch
	}
	db, err := s.pool()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (id, collection, body) VALUES ($1, $2, $3::jsonb)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), s.collection.Name, string(body)); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %d documents: %w", len(docs), err)
	}
	return nil
}

// FindAll returns every document of the collection in insertion order
func (s *Store) FindAll(ctx context.Context) ([]domain.Document, error) {
	return s.query(ctx, "", []interface{}{s.collection.Name})
}

// FindAny returns the documents matching at least one condition
func (s *Store) FindAny(ctx context.Context, conds []domain.Condition) ([]domain.Document, error) {
	if len(conds) == 0 {
		return []domain.Document{}, nil
	}
	where, args := WhereAny(conds, 2)
	return s.query(ctx, " AND "+where, append([]interface{}{s.collection.Name}, args...))
}

func (s *Store) query(ctx context.Context, extra string, args []interface{}) ([]domain.Document, error) {
	db, err := s.pool()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, body FROM documents WHERE collection = $1"+extra+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.collection, err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var doc domain.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		if doc == nil {
			doc = domain.Document{}
		}
		doc[domain.IDField] = id
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close closes the pool
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()

	if db == nil {
		return nil
	}
	return db.Close()
}

// WhereAny renders the conditions as an OR of JSONB path equalities.
// Placeholders are numbered from first. An array found at the path also
// matches when it contains the value.
func WhereAny(conds []domain.Condition, first int) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	n := first

	for _, cond := range conds {
		for _, pm := range cond.Flatten() {
			value, err := json.Marshal(pm.Value)
			if err != nil {
				continue
			}
			path := fmt.Sprintf("body #> $%d::text[]", n)
			val := fmt.Sprintf("$%d::jsonb", n+1)
			clauses = append(clauses, fmt.Sprintf(
				"(%s = %s OR (jsonb_typeof(%s) = 'array' AND %s @> jsonb_build_array(%s)))",
				path, val, path, path, val))
			args = append(args, pm.Path, string(value))
			n += 2
		}
	}

	if len(clauses) == 0 {
		return "FALSE", nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}
