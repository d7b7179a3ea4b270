package repository

import (
	"context"
	"database/sql"
	"fmt"

	"article-sync-server/internal/config"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
)

// Store bundles the repositories for one backend together with its teardown.
type Store struct {
	Articles ArticleRepository
	Versions ArticleVersionRepository
	SQL      *sql.DB
	closeFn  func() error
}

func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// NewStoreFromConfig opens the backend selected by cfg.Driver.
func NewStoreFromConfig(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverCouch:
		return newCouchStore(ctx, cfg)
	case config.DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH required for sqlite driver")
		}
		return newSQLiteStore(cfg.SQLitePath)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func NewMemoryStore() *Store {
	return &Store{
		Articles: NewMemoryArticleRepository(),
		Versions: NewMemoryArticleVersionRepository(),
	}
}

func newSQLiteStore(path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	return &Store{
		Articles: NewSQLiteArticleRepository(db),
		Versions: NewSQLiteArticleVersionRepository(db),
		SQL:      db,
		closeFn:  db.Close,
	}, nil
}

func newCouchStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	exists, err := client.DBExists(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Name); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	if err := EnsureCouchIndexes(ctx, client, cfg.Name); err != nil {
		return nil, err
	}

	return &Store{
		Articles: NewCouchArticleRepository(client, cfg.Name),
		Versions: NewCouchArticleVersionRepository(client, cfg.Name),
		closeFn:  client.Close,
	}, nil
}
