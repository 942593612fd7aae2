// Package sqldoc stores remote documents in a SQL table, for deployments that
// mirror snapshots into a shared Postgres or MySQL database.
package sqldoc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"puzzlepals/internal/database"
	"puzzlepals/internal/remote"
	"puzzlepals/migrations"
)

// Store keeps documents in the documents table keyed by (collection, doc_key)
type Store struct {
	db *database.DB
}

var _ remote.DocumentStore = (*Store)(nil)

// Open connects to the named database and creates the documents table.
// dsn is a connection URL for postgres/mysql and a file path for sqlite.
func Open(driver, dsn string) (*Store, error) {
	dialect, err := database.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dialect, database.DialectConfig{Path: dsn, URL: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}
	store, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New creates a store over an open database, running the document migrations
func New(db *database.DB) (*Store, error) {
	if err := db.RunMigrations(migrations.FS, migrations.Remote); err != nil {
		return nil, fmt.Errorf("failed to migrate document table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Upsert(ctx context.Context, collection, key string, doc []byte) error {
	query := s.db.Dialect.RewriteQuery(s.db.Dialect.UpsertDocumentQuery())
	_, err := s.db.ExecContext(ctx, query, collection, key, string(doc))
	return err
}

func (s *Store) Find(ctx context.Context, collection, key string) ([]byte, error) {
	query := s.db.Dialect.RewriteQuery("SELECT body FROM documents WHERE collection = ? AND doc_key = ?")
	var body string
	err := s.db.QueryRowContext(ctx, query, collection, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	query := s.db.Dialect.RewriteQuery("DELETE FROM documents WHERE collection = ? AND doc_key = ?")
	_, err := s.db.ExecContext(ctx, query, collection, key)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
