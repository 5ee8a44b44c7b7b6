// Package storage selects and constructs the document store backend.
package storage

import (
	"fmt"

	"github.com/adfharrison1/sheetstore/pkg/config"
	"github.com/adfharrison1/sheetstore/pkg/domain"
	"github.com/adfharrison1/sheetstore/pkg/storage/firestore"
	"github.com/adfharrison1/sheetstore/pkg/storage/local"
	"github.com/adfharrison1/sheetstore/pkg/storage/mongo"
	"github.com/adfharrison1/sheetstore/pkg/storage/postgres"
	"github.com/adfharrison1/sheetstore/pkg/storage/sqlite"
)

// New creates a DocumentStore for the configured backend. The store is not
// connected yet; callers invoke Connect once at startup.
//
// Supported backends:
//
//	"mongo"     - MongoDB collection (default)
//	"postgres"  - JSONB rows in PostgreSQL
//	"sqlite"    - JSON text rows in a SQLite file
//	"firestore" - Cloud Firestore collection
//	"local"     - in-process, snapshotted to -data-dir when set
func New(cfg *config.Config) (domain.DocumentStore, error) {
	collection := domain.NewCollection(cfg.Database, cfg.Collection)

	switch cfg.Backend {
	case config.BackendMongo, "":
		return mongo.New(cfg.MongoURI, collection), nil
	case config.BackendPostgres:
		return postgres.New(cfg.PostgresDSN, collection), nil
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath, collection), nil
	case config.BackendFirestore:
		return firestore.New(firestore.Config{
			ProjectID:       cfg.FirestoreProject,
			DatabaseID:      cfg.FirestoreDatabase,
			CredentialsFile: cfg.FirestoreCredentials,
		}, collection), nil
	case config.BackendLocal:
		var opts []local.Option
		if cfg.DataDir != "" {
			opts = append(opts, local.WithDataDir(cfg.DataDir))
		}
		return local.New(collection, opts...), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
