// Package config loads sheetstore settings from command line flags.
// Every flag falls back to a SHEETSTORE_* environment variable and then to
// the built-in default.
package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Supported storage backends
const (
	BackendMongo     = "mongo"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendLocal     = "local"
)

// Defaults used when neither a flag nor an environment variable is set
const (
	DefaultPort           = "3000"
	DefaultBackend        = BackendMongo
	DefaultMongoURI       = "yourMongodbURL"
	DefaultDatabase       = "yourDatabaseName"
	DefaultCollection     = "yourCollectionName"
	DefaultSQLitePath     = "sheetstore.db"
	DefaultRequestTimeout = 30 * time.Second
)

// ArchiveConfig configures optional archival of uploaded workbooks
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Enabled reports whether an archive endpoint was configured
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != ""
}

// Config holds all process settings
type Config struct {
	Port           string
	Backend        string
	Database       string
	Collection     string
	RequestTimeout time.Duration

	MongoURI             string
	PostgresDSN          string
	SQLitePath           string
	FirestoreProject     string
	FirestoreDatabase    string
	FirestoreCredentials string
	DataDir              string

	Archive ArchiveConfig
}

// Load parses args (without the program name). getenv supplies environment
// fallbacks; pass os.Getenv in production.
func Load(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	env := func(key, fallback string) string {
		if v := getenv("SHEETSTORE_" + key); v != "" {
			return v
		}
		return fallback
	}

	timeout := DefaultRequestTimeout
	if raw := env("REQUEST_TIMEOUT", ""); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SHEETSTORE_REQUEST_TIMEOUT %q: %w", raw, err)
		}
		timeout = parsed
	}

	cfg := &Config{}
	fs := flag.NewFlagSet("sheetstore", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.Port, "port", env("PORT", DefaultPort), "Server port")
	fs.StringVar(&cfg.Backend, "backend", env("BACKEND", DefaultBackend), "Storage backend: mongo, postgres, sqlite, firestore or local")
	fs.StringVar(&cfg.Database, "database", env("DATABASE", DefaultDatabase), "Database name")
	fs.StringVar(&cfg.Collection, "collection", env("COLLECTION", DefaultCollection), "Collection documents are stored in")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", timeout, "Per-request store timeout (0 disables)")

	fs.StringVar(&cfg.MongoURI, "mongo-uri", env("MONGO_URI", DefaultMongoURI), "MongoDB connection string")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", env("SQLITE_PATH", DefaultSQLitePath), "SQLite database file")
	fs.StringVar(&cfg.FirestoreProject, "firestore-project", env("FIRESTORE_PROJECT", ""), "Google Cloud project for Firestore")
	fs.StringVar(&cfg.FirestoreDatabase, "firestore-database", env("FIRESTORE_DATABASE", ""), "Firestore database ID (default database when empty)")
	fs.StringVar(&cfg.FirestoreCredentials, "firestore-credentials", env("FIRESTORE_CREDENTIALS", ""), "Service account JSON file for Firestore")
	fs.StringVar(&cfg.DataDir, "data-dir", env("DATA_DIR", ""), "Snapshot directory for the local backend (memory only when empty)")

	fs.StringVar(&cfg.Archive.Endpoint, "archive-endpoint", env("ARCHIVE_ENDPOINT", ""), "S3-compatible endpoint for archiving uploads (disabled when empty)")
	fs.StringVar(&cfg.Archive.AccessKey, "archive-access-key", env("ARCHIVE_ACCESS_KEY", ""), "Archive access key")
	fs.StringVar(&cfg.Archive.SecretKey, "archive-secret-key", env("ARCHIVE_SECRET_KEY", ""), "Archive secret key")
	fs.StringVar(&cfg.Archive.Bucket, "archive-bucket", env("ARCHIVE_BUCKET", ""), "Archive bucket")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage of sheetstore:\n")
		fmt.Fprintf(output, "\nsheetstore stores spreadsheet rows as documents and searches them.\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(output, "\nEvery option can also be set as SHEETSTORE_<NAME>, e.g. SHEETSTORE_MONGO_URI.\n")
		fmt.Fprintf(output, "\nExamples:\n")
		fmt.Fprintf(output, "  sheetstore -mongo-uri mongodb://localhost:27017       # MongoDB on localhost\n")
		fmt.Fprintf(output, "  sheetstore -backend local -data-dir /tmp/sheetstore    # Embedded store with snapshots\n")
		fmt.Fprintf(output, "  sheetstore -backend sqlite -sqlite-path ./rows.db      # SQLite file\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the selected backend needs
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}

	switch c.Backend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo backend requires -mongo-uri")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires -postgres-dsn")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires -sqlite-path")
		}
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("firestore backend requires -firestore-project")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown store backend: %q (supported: mongo, postgres, sqlite, firestore, local)", c.Backend)
	}

	if c.Archive.Enabled() && c.Archive.Bucket == "" {
		return fmt.Errorf("archive endpoint set without -archive-bucket")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}
