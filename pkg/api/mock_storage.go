package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// MockDocumentStore provides a mock implementation of domain.DocumentStore for testing
type MockDocumentStore struct {
	mu      sync.RWMutex
	docs    []domain.Document
	nextID  int
	failOps map[string]error

	insertCalls  int
	findAllCalls int
	findAnyCalls int
	lastConds    []domain.Condition
}

// NewMockDocumentStore creates a new mock store holding docs
func NewMockDocumentStore(docs ...domain.Document) *MockDocumentStore {
	m := &MockDocumentStore{failOps: make(map[string]error)}
	for _, doc := range docs {
		m.store(doc)
	}
	return m
}

// FailOn makes the named operation ("Ping", "InsertMany", "FindAll", "FindAny") return err
func (m *MockDocumentStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOps[op] = err
}

func (m *MockDocumentStore) store(doc domain.Document) {
	stored := doc.Clone()
	m.nextID++
	stored[domain.IDField] = fmt.Sprintf("%d", m.nextID)
	m.docs = append(m.docs, stored)
}

// Connect is a no-op
func (m *MockDocumentStore) Connect(ctx context.Context) error {
	return nil
}

// Ping reports the injected failure, if any
func (m *MockDocumentStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failOps["Ping"]
}

// InsertMany stores copies of docs with sequential IDs
func (m *MockDocumentStore) InsertMany(ctx context.Context, docs []domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	if err := m.failOps["InsertMany"]; err != nil {
		return err
	}
	if len(docs) == 0 {
		return domain.ErrEmptyBatch
	}
	for _, doc := range docs {
		m.store(doc)
	}
	return nil
}

// FindAll returns every stored document
func (m *MockDocumentStore) FindAll(ctx context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.findAllCalls++
	if err := m.failOps["FindAll"]; err != nil {
		return nil, err
	}
	result := make([]domain.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		result = append(result, doc.Clone())
	}
	return result, nil
}

// FindAny returns the stored documents matching at least one condition
func (m *MockDocumentStore) FindAny(ctx context.Context, conds []domain.Condition) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.findAnyCalls++
	m.lastConds = conds
	if err := m.failOps["FindAny"]; err != nil {
		return nil, err
	}
	result := []domain.Document{}
	for _, doc := range m.docs {
		if domain.MatchesAny(doc, conds) {
			result = append(result, doc.Clone())
		}
	}
	return result, nil
}

// Close is a no-op
func (m *MockDocumentStore) Close(ctx context.Context) error {
	return nil
}

// GetInsertCalls returns the number of InsertMany calls
func (m *MockDocumentStore) GetInsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.insertCalls
}

// GetFindAllCalls returns the number of FindAll calls
func (m *MockDocumentStore) GetFindAllCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findAllCalls
}

// GetFindAnyCalls returns the number of FindAny calls
func (m *MockDocumentStore) GetFindAnyCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findAnyCalls
}

// GetLastConditions returns the conditions passed to the latest FindAny
func (m *MockDocumentStore) GetLastConditions() []domain.Condition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastConds
}

// GetDocumentCount returns the number of stored documents
func (m *MockDocumentStore) GetDocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// MockArchiver records archived uploads
type MockArchiver struct {
	mu       sync.Mutex
	err      error
	Archived []string
}

// NewMockArchiver creates an archiver that fails with err when non-nil
func NewMockArchiver(err error) *MockArchiver {
	return &MockArchiver{err: err}
}

// Archive records filename
func (m *MockArchiver) Archive(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.Archived = append(m.Archived, filename)
	return "uploads/mock/" + filename, nil
}
