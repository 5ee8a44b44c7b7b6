// Package sqlite stores documents as JSON text in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Store keeps all collections in a single SQLite file.
//
// Tables:
//
//	documents(seq, id, collection, data)  seq gives insertion order
//
// Disjunction queries are evaluated in process over the collection's rows.
type Store struct {
	path       string
	collection domain.Collection

	mu sync.RWMutex
	db *sql.DB
}

// New creates a store for the database file at path; call Connect before use
func New(path string, collection domain.Collection) *Store {
	return &Store{
		path:       path,
		collection: collection,
	}
}

// Connect opens the database and creates the schema
func (s *Store) Connect(ctx context.Context) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite %s: %w", s.path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		collection TEXT NOT NULL,
		data TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection, seq)"); err != nil {
		db.Close()
		return err
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, domain.ErrNotConnected
	}
	return s.db, nil
}

// Ping checks the database file is usable
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.handle()
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
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (id, collection, data) VALUES (?, ?, ?)",
			uuid.NewString(), s.collection.Name, string(raw)); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// FindAll returns every document of the collection in insertion order
func (s *Store) FindAll(ctx context.Context) ([]domain.Document, error) {
	return s.scan(ctx, nil)
}

// FindAny returns the documents matching at least one condition
func (s *Store) FindAny(ctx context.Context, conds []domain.Condition) ([]domain.Document, error) {
	return s.scan(ctx, func(doc domain.Document) bool {
		return domain.MatchesAny(doc, conds)
	})
}

func (s *Store) scan(ctx context.Context, keep func(domain.Document) bool) ([]domain.Document, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY seq", s.collection.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc domain.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		if doc == nil {
			doc = domain.Document{}
		}
		doc[domain.IDField] = id
		if keep == nil || keep(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, rows.Err()
}

// Close closes the database
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
