package domain

import "context"

// DocumentStore defines the operations the service needs from a document database.
// An implementation is bound to a single collection and is safe for concurrent use
// once Connect has returned.
type DocumentStore interface {
	// Connect opens the underlying connection pool and verifies the store is reachable
	Connect(ctx context.Context) error

	// Ping checks the store is still reachable
	Ping(ctx context.Context) error

	// InsertMany writes all documents as one bulk operation. The given documents
	// are not modified.
	InsertMany(ctx context.Context, docs []Document) error

	// FindAll returns every document in the collection in store-defined order
	FindAll(ctx context.Context) ([]Document, error)

	// FindAny returns every document matching at least one of the conditions
	FindAny(ctx context.Context, conds []Condition) ([]Document, error)

	// Close releases the connection pool
	Close(ctx context.Context) error
}
