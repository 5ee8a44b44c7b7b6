// Package mongo stores documents in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Store is a domain.DocumentStore backed by one MongoDB collection.
// The driver client is a connection pool shared by all requests.
type Store struct {
	uri        string
	collection domain.Collection

	mu     sync.RWMutex
	client *mongo.Client
	coll   *mongo.Collection
}

// New creates a store; call Connect before use
func New(uri string, collection domain.Collection) *Store {
	return &Store{
		uri:        uri,
		collection: collection,
	}
}

// Connect opens the client pool and pings the primary
func (s *Store) Connect(ctx context.Context) error {
	opts := options.Client().
		ApplyURI(s.uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.coll = client.Database(s.collection.Database).Collection(s.collection.Name)
	s.mu.Unlock()
	return nil
}

func (s *Store) handle() (*mongo.Client, *mongo.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, nil, domain.ErrNotConnected
	}
	return s.client, s.coll, nil
}

// Ping checks the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	client, _, err := s.handle()
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// InsertMany inserts the documents in one bulk write
func (s *Store) InsertMany(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return domain.ErrEmptyBatch
	}
	_, coll, err := s.handle()
	if err != nil {
		return err
	}

	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = bson.M(doc)
	}

	if _, err := coll.InsertMany(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert %d documents into %s: %w", len(docs), s.collection, err)
	}
	return nil
}

// FindAll returns every document in natural order
func (s *Store) FindAll(ctx context.Context) ([]domain.Document, error) {
	return s.find(ctx, bson.D{})
}

// FindAny runs one $or query over the conditions
func (s *Store) FindAny(ctx context.Context, conds []domain.Condition) ([]domain.Document, error) {
	if len(conds) == 0 {
		return []domain.Document{}, nil
	}
	return s.find(ctx, Filter(conds))
}

func (s *Store) find(ctx context.Context, filter interface{}) ([]domain.Document, error) {
	_, coll, err := s.handle()
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.collection, err)
	}

	docs := make([]domain.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, domain.Document(fromBSON(m).(map[string]interface{})))
	}
	return docs, nil
}

// Close disconnects the client pool
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client, s.coll = nil, nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// Filter translates a disjunction into a MongoDB $or filter. Nested
// disjunctions become dotted paths, which also address array elements
// by index.
func Filter(conds []domain.Condition) bson.M {
	or := bson.A{}
	for _, cond := range conds {
		for _, pm := range cond.Flatten() {
			or = append(or, bson.M{strings.Join(pm.Path, "."): pm.Value})
		}
	}
	return bson.M{"$or": or}
}

// fromBSON converts driver values into JSON-shaped document values
func fromBSON(value interface{}) interface{} {
	switch v := value.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = fromBSON(item)
		}
		return out
	case map[string]interface{}:
		return fromBSON(bson.M(v))
	case bson.D:
		out := make(map[string]interface{}, len(v))
		for _, elem := range v {
			out[elem.Key] = fromBSON(elem.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = fromBSON(item)
		}
		return out
	case []interface{}:
		return fromBSON(bson.A(v))
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Decimal128:
		return v.String()
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return value
}
