package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voicebridge/data-connector/internal/db"
	"github.com/voicebridge/data-connector/internal/logger"
)

// SQLStore persists credentials in SQLite or PostgreSQL.
type SQLStore struct {
	db  *db.DB
	log *logger.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a credential store on an open database connection and
// initializes its schema.
func NewSQLStore(ctx context.Context, conn *db.DB, log *logger.Logger) (*SQLStore, error) {
	s := &SQLStore{db: conn, log: log}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize api_keys schema: %w", err)
	}
	return s, nil
}

// Close is a no-op; the shared connection is owned by the caller.
func (s *SQLStore) Close() error {
	return nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	// Timestamps are stored as RFC3339 TEXT for SQLite/PostgreSQL
	// portability.
	createTableQuery := `
	CREATE TABLE IF NOT EXISTS api_keys (
		token TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_used TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		rate_limit INTEGER
	)`

	if _, err := s.db.SQL.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create api_keys table: %w", err)
	}

	if _, err := s.db.SQL.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_api_keys_active ON api_keys(active)`); err != nil {
		return fmt.Errorf("failed to create active index: %w", err)
	}

	return nil
}

func (s *SQLStore) Add(ctx context.Context, cred *Credential) error {
	token := strings.TrimSpace(cred.Token)
	if token == "" {
		return ErrEmptyToken
	}

	name := strings.TrimSpace(cred.Name)
	if name == "" {
		return ErrEmptyName
	}

	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	//nolint:gosec // G201: placeholder indices only, not user input
	query := fmt.Sprintf(`
	INSERT INTO api_keys (token, name, created_at, last_used, active, rate_limit)
	VALUES (%s, %s, %s, NULL, 1, %s)
	`, s.db.Placeholder(1), s.db.Placeholder(2), s.db.Placeholder(3), s.db.Placeholder(4))

	_, err := s.db.SQL.ExecContext(ctx, query,
		token, name, createdAt.UTC().Format(time.RFC3339), cred.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// Authenticate performs the lookup-and-touch in one UPDATE so concurrent use
// of the same key cannot interleave between check and timestamp write. A lost
// last_used update is tolerable; admitting a revoked key is not.
func (s *SQLStore) Authenticate(ctx context.Context, token string) (*Credential, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	//nolint:gosec // G201: placeholder indices only, not user input
	update := fmt.Sprintf(`UPDATE api_keys SET last_used = %s WHERE token = %s AND active = 1`,
		s.db.Placeholder(1), s.db.Placeholder(2))

	result, err := s.db.SQL.ExecContext(ctx, update, now, token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Distinguish unknown from revoked for internal logging.
		cred, getErr := s.Get(ctx, token)
		if getErr != nil {
			return nil, ErrKeyNotFound
		}
		if !cred.Active {
			return nil, ErrKeyRevoked
		}
		return nil, ErrKeyNotFound
	}

	return s.Get(ctx, token)
}

func (s *SQLStore) Get(ctx context.Context, token string) (*Credential, error) {
	//nolint:gosec // G201: placeholder indices only, not user input
	query := fmt.Sprintf(`
	SELECT token, name, created_at, last_used, active, rate_limit
	FROM api_keys
	WHERE token = %s
	`, s.db.Placeholder(1))

	row := s.db.SQL.QueryRowContext(ctx, query, token)

	cred, err := scanCredential(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return cred, nil
}

func (s *SQLStore) ListActive(ctx context.Context) ([]Metadata, error) {
	query := `
	SELECT token, name, created_at, last_used, active, rate_limit
	FROM api_keys
	WHERE active = 1
	ORDER BY created_at DESC
	`

	rows, err := s.db.SQL.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Empty slice so listings marshal as [] instead of null.
	creds := []Metadata{}

	for rows.Next() {
		cred, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		creds = append(creds, Metadata{
			KeyPreview: cred.Preview(),
			Name:       cred.Name,
			CreatedAt:  cred.CreatedAt,
			LastUsed:   cred.LastUsed,
			Active:     cred.Active,
			RateLimit:  cred.RateLimit,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return creds, nil
}

func (s *SQLStore) Revoke(ctx context.Context, token string) (bool, error) {
	//nolint:gosec // G201: placeholder indices only, not user input
	query := fmt.Sprintf(`UPDATE api_keys SET active = 0 WHERE token = %s`, s.db.Placeholder(1))

	result, err := s.db.SQL.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("failed to revoke credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// scanCredential reads one api_keys row via the given scan function.
func scanCredential(scan func(dest ...any) error) (*Credential, error) {
	var (
		cred        Credential
		createdStr  string
		lastUsedStr sql.NullString
		activeInt   int
		rateLimit   sql.NullInt64
	)

	if err := scan(&cred.Token, &cred.Name, &createdStr, &lastUsedStr, &activeInt, &rateLimit); err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, createdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for credential: %w", err)
	}
	cred.CreatedAt = createdAt

	if lastUsedStr.Valid {
		lastUsed, err := time.Parse(time.RFC3339, lastUsedStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_used for credential: %w", err)
		}
		cred.LastUsed = &lastUsed
	}

	cred.Active = activeInt != 0

	if rateLimit.Valid {
		limit := int(rateLimit.Int64)
		cred.RateLimit = &limit
	}

	return &cred, nil
}
