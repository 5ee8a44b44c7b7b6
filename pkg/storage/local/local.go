// Package local provides an embedded document store kept in process memory.
// When a data directory is configured the collection is snapshotted to disk
// after every write and reloaded on Connect.
package local

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Store is an in-process domain.DocumentStore
type Store struct {
	mu         sync.RWMutex
	collection domain.Collection
	docs       []domain.Document
	connected  bool

	// Configuration
	dataDir string
}

// Option configures the local store
type Option func(*Store)

// WithDataDir enables snapshot persistence under dir
func WithDataDir(dir string) Option {
	return func(s *Store) {
		s.dataDir = dir
	}
}

// New creates a local store for the given collection
func New(collection domain.Collection, options ...Option) *Store {
	s := &Store{
		collection: collection,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// SnapshotPath returns the file the collection is persisted to, or "" when
// the store is memory-only
func (s *Store) SnapshotPath() string {
	if s.dataDir == "" {
		return ""
	}
	return filepath.Join(s.dataDir, s.collection.Database, s.collection.Name+FileExtension)
}

// Connect loads the snapshot if one exists
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.SnapshotPath()
	if path != "" {
		docs, err := loadSnapshot(path)
		if err != nil {
			return fmt.Errorf("failed to load snapshot %s: %w", path, err)
		}
		s.docs = docs
		log.Printf("INFO: Loaded %d documents for %s from %s", len(docs), s.collection, path)
	}

	s.connected = true
	return nil
}

// Ping reports whether the store has been connected
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return domain.ErrNotConnected
	}
	return ctx.Err()
}

// InsertMany appends copies of the documents, each with a fresh _id
func (s *Store) InsertMany(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return domain.ErrEmptyBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]domain.Document, len(docs))
	for i, doc := range docs {
		stored := doc.Clone()
		if stored == nil {
			stored = domain.Document{}
		}
		if _, ok := stored[domain.IDField]; !ok {
			stored[domain.IDField] = uuid.NewString()
		}
		batch[i] = stored
	}

	prev := s.docs
	s.docs = append(s.docs[:len(s.docs):len(s.docs)], batch...)

	if path := s.SnapshotPath(); path != "" {
		if err := saveSnapshot(path, s.collection, s.docs); err != nil {
			s.docs = prev
			return fmt.Errorf("failed to persist %d documents: %w", len(batch), err)
		}
	}
	return nil
}

// FindAll returns copies of every document in insertion order
func (s *Store) FindAll(ctx context.Context) ([]domain.Document, error) {
	return s.find(ctx, func(domain.Document) bool { return true })
}

// FindAny returns copies of the documents matching at least one condition
func (s *Store) FindAny(ctx context.Context, conds []domain.Condition) ([]domain.Document, error) {
	return s.find(ctx, func(doc domain.Document) bool {
		return domain.MatchesAny(doc, conds)
	})
}

func (s *Store) find(ctx context.Context, keep func(domain.Document) bool) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if keep(doc) {
			results = append(results, doc.Clone())
		}
	}
	return results, nil
}

// Close marks the store disconnected. Data already persisted stays on disk.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	return nil
}

func loadSnapshot(path string) ([]domain.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	snap, err := ReadSnapshot(file)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(snap.Documents))
	for _, raw := range snap.Documents {
		docs = append(docs, domain.Document(domain.Normalize(raw).(map[string]interface{})))
	}
	return docs, nil
}

// saveSnapshot writes to a temp file and renames it over the previous snapshot
func saveSnapshot(path string, collection domain.Collection, docs []domain.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	snap := &Snapshot{
		Database:   collection.Database,
		Collection: collection.Name,
		Documents:  make([]map[string]interface{}, len(docs)),
	}
	for i, doc := range docs {
		snap.Documents[i] = map[string]interface{}(doc)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteSnapshot(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
