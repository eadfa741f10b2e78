// Package db opens and configures the SQL database shared by the durable
// stores (credentials and webhook subscriptions).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"

	driverSQLite   = "sqlite3"
	driverPostgres = "pgx"

	// Memory is the SQLite in-memory DSN (ephemeral, for testing and the
	// default storage mode).
	Memory = ":memory:"
)

// DB bundles the SQL handle with its database type so stores can build
// portable queries.
type DB struct {
	SQL  *sql.DB
	Type Type
}

// OpenSQLite opens a SQLite database. Use db.Memory (or an empty path) for
// an in-memory database, or a file path for persistent storage.
func OpenSQLite(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = Memory
	}

	dsn := dbPath
	if dbPath != Memory {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)
	}

	conn, err := sql.Open(driverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	configureConnectionPool(conn, TypeSQLite)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &DB{SQL: conn, Type: TypeSQLite}, nil
}

// OpenPostgres opens an external PostgreSQL database from a connection URL.
func OpenPostgres(ctx context.Context, databaseURL string) (*DB, error) {
	databaseURL = strings.TrimSpace(databaseURL)

	if !strings.HasPrefix(databaseURL, "postgresql://") && !strings.HasPrefix(databaseURL, "postgres://") {
		return nil, fmt.Errorf(
			"unsupported external database URL: %q. Currently supported: postgresql://",
			databaseURL)
	}

	conn, err := sql.Open(driverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	configureConnectionPool(conn, TypePostgres)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return &DB{SQL: conn, Type: TypePostgres}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.SQL.Close()
}

// Placeholder returns the appropriate SQL placeholder for the database type.
// SQLite uses ?, PostgreSQL uses $1, $2, etc.
func (d *DB) Placeholder(index int) string {
	if d.Type == TypeSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", index)
}

const (
	defaultMaxOpenConns        = 25
	defaultMaxIdleConns        = 5
	defaultConnMaxLifetimeSecs = 300
)

// configureConnectionPool sets connection pool settings based on database
// type.
func configureConnectionPool(conn *sql.DB, dbType Type) {
	if dbType == TypePostgres {
		conn.SetMaxOpenConns(defaultMaxOpenConns)
		conn.SetMaxIdleConns(defaultMaxIdleConns)
		conn.SetConnMaxLifetime(defaultConnMaxLifetimeSecs * time.Second)
	} else {
		// SQLite: single connection to avoid database locking issues
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}
}
