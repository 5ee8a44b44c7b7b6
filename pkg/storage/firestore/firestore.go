// Package firestore stores documents in a Cloud Firestore collection.
package firestore

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Config selects the Firestore project and database
type Config struct {
	ProjectID       string
	DatabaseID      string
	CredentialsFile string
}

// Store is a domain.DocumentStore over one Firestore collection. Firestore
// has no equality-on-any-path disjunction, so FindAny filters in process.
type Store struct {
	config     Config
	collection domain.Collection

	mu     sync.RWMutex
	client *firestore.Client
}

// New creates a store; call Connect before use
func New(config Config, collection domain.Collection) *Store {
	if config.DatabaseID == "" {
		config.DatabaseID = firestore.DefaultDatabaseID
	}
	return &Store{
		config:     config,
		collection: collection,
	}
}

// Connect creates the client and performs a one-document read to verify access
func (s *Store) Connect(ctx context.Context) error {
	if s.config.ProjectID == "" {
		return fmt.Errorf("projectID must be provided to create a firestore client")
	}

	var opts []option.ClientOption
	if s.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.config.CredentialsFile))
	}

	client, err := firestore.NewClientWithDatabase(ctx, s.config.ProjectID, s.config.DatabaseID, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Firestore client: %w", err)
	}

	if err := probe(ctx, client, s.collection.Name); err != nil {
		client.Close()
		return fmt.Errorf("failed to reach Firestore: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

func probe(ctx context.Context, client *firestore.Client, collection string) error {
	_, err := client.Collection(collection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *Store) handle() (*firestore.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, domain.ErrNotConnected
	}
	return s.client, nil
}

// Ping reads at most one document
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.handle()
	if err != nil {
		return err
	}
	return probe(ctx, client, s.collection.Name)
}

// InsertMany creates every document inside one transaction
func (s *Store) InsertMany(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return domain.ErrEmptyBatch
	}
	client, err := s.handle()
	if err != nil {
		return err
	}

	coll := client.Collection(s.collection.Name)
	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i, doc := range docs {
			if err := tx.Create(coll.NewDoc(), map[string]interface{}(doc)); err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert %d documents into %s: %w", len(docs), s.collection.Name, err)
	}
	return nil
}

// FindAll returns every document of the collection
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
	client, err := s.handle()
	if err != nil {
		return nil, err
	}

	snaps, err := client.Collection(s.collection.Name).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.collection.Name, err)
	}

	docs := make([]domain.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc := domain.Document(domain.Normalize(snap.Data()).(map[string]interface{}))
		doc[domain.IDField] = snap.Ref.ID
		if keep == nil || keep(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Close closes the client
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}
