package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const sqliteBusyTimeoutMs = "5000"

// SQLiteDialect implements Dialect for SQLite through the cgo driver
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN enables foreign keys, WAL and a busy timeout on every pooled connection
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return appendParams(config.Path, "_busy_timeout="+sqliteBusyTimeoutMs+"&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	return configureSQLitePool(db)
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return sqliteMigrationsTable
}

func (d *SQLiteDialect) InsertIgnoreQuery(table string, columns ...string) string {
	return insertStatement("INSERT OR IGNORE", table, columns)
}

func (d *SQLiteDialect) UpsertDocumentQuery() string {
	return sqliteUpsertDocument
}

// PureSQLiteDialect implements Dialect for SQLite through the pure Go driver,
// for shells that are cross-compiled without cgo
type PureSQLiteDialect struct{}

// NewPureSQLiteDialect creates a new pure Go SQLite dialect
func NewPureSQLiteDialect() *PureSQLiteDialect {
	return &PureSQLiteDialect{}
}

func (d *PureSQLiteDialect) Name() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) DriverName() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) DSN(config DialectConfig) string {
	path := config.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return appendParams(path, "_pragma=busy_timeout("+sqliteBusyTimeoutMs+")&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_time_format=sqlite&_txlock=immediate")
}

func (d *PureSQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *PureSQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *PureSQLiteDialect) ConfigureConnection(db *sql.DB) error {
	return configureSQLitePool(db)
}

func (d *PureSQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) CreateMigrationsTableQuery() string {
	return sqliteMigrationsTable
}

func (d *PureSQLiteDialect) InsertIgnoreQuery(table string, columns ...string) string {
	return insertStatement("INSERT OR IGNORE", table, columns)
}

func (d *PureSQLiteDialect) UpsertDocumentQuery() string {
	return sqliteUpsertDocument
}

const sqliteMigrationsTable = `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

const sqliteUpsertDocument = `INSERT INTO documents (collection, doc_key, body, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, doc_key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`

func configureSQLitePool(db *sql.DB) error {
	// A device store has one process; a small pool keeps WAL readers cheap
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func appendParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
