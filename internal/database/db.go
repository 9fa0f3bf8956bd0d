package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder and DDL flavour
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB is a key-value table on top of PostgreSQL or SQLite
type DB struct {
	*sql.DB
	dialect Dialect
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new PostgreSQL connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	// Create PostgreSQL connection string
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	return open(ctx, DialectPostgres, "postgres", connStr)
}

// NewSQLite opens (or creates) an SQLite database file.
// ":memory:" gives a private in-memory database.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	return open(ctx, DialectSQLite, "sqlite", path)
}

func open(ctx context.Context, dialect Dialect, driver, dsn string) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// a single connection keeps ":memory:" databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
	}

	// Check connection, the server may still be starting
	ping := func() error {
		return sqlDB.PingContext(ctx)
	}
	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 15 * time.Second
	err = backoff.RetryNotify(ping, backoff.WithContext(strategy, ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("driver", driver).Dur("retry_in", wait).Msg("Database not reachable yet")
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	db := &DB{DB: sqlDB, dialect: dialect}

	// Create tables if they don't exist
	if err := db.createTables(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables if they don't exist
func (db *DB) createTables(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// Get returns the value stored under key
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT value FROM kv_entries WHERE key = ?
	`), key).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value
func (db *DB) Set(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`), key, value, time.Now().UTC())
	return err
}

// Delete removes key; deleting a missing key is not an error
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		DELETE FROM kv_entries WHERE key = ?
	`), key)
	return err
}

// rebind turns ? placeholders into $N for PostgreSQL
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
