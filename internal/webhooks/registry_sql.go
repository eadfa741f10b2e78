package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voicebridge/data-connector/internal/db"
	"github.com/voicebridge/data-connector/internal/logger"
)

// SQLRegistry persists subscriptions in SQLite or PostgreSQL.
type SQLRegistry struct {
	db  *db.DB
	log *logger.Logger
}

var _ Registry = (*SQLRegistry)(nil)

// NewSQLRegistry creates a subscription registry on an open database
// connection and initializes its schema.
func NewSQLRegistry(ctx context.Context, conn *db.DB, log *logger.Logger) (*SQLRegistry, error) {
	r := &SQLRegistry{db: conn, log: log}
	if err := r.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize webhooks schema: %w", err)
	}
	return r, nil
}

// Close is a no-op; the shared connection is owned by the caller.
func (r *SQLRegistry) Close() error {
	return nil
}

func (r *SQLRegistry) initSchema(ctx context.Context) error {
	// Auto-increment syntax differs between the two backends; events are
	// stored as a JSON array, timestamps as RFC3339 TEXT.
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.db.Type == db.TypePostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	createTableQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS webhooks (
		%s,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		events TEXT NOT NULL,
		created_at TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		delivery_count INTEGER NOT NULL DEFAULT 0,
		last_delivery TEXT
	)`, idColumn)

	if _, err := r.db.SQL.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create webhooks table: %w", err)
	}

	return nil
}

func (r *SQLRegistry) Register(ctx context.Context, targetURL, name string, events []string) (*Subscription, error) {
	deduped, err := validateRegistration(targetURL, events)
	if err != nil {
		return nil, err
	}

	eventsJSON, err := json.Marshal(deduped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event list: %w", err)
	}

	createdAt := time.Now().UTC()

	sub := &Subscription{
		URL:       targetURL,
		Name:      name,
		Events:    deduped,
		CreatedAt: createdAt,
		Active:    true,
	}

	if r.db.Type == db.TypePostgres {
		query := fmt.Sprintf(`
		INSERT INTO webhooks (url, name, events, created_at)
		VALUES (%s, %s, %s, %s)
		RETURNING id
		`, r.db.Placeholder(1), r.db.Placeholder(2), r.db.Placeholder(3), r.db.Placeholder(4))

		err = r.db.SQL.QueryRowContext(ctx, query,
			targetURL, name, string(eventsJSON), createdAt.Format(time.RFC3339)).Scan(&sub.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert subscription: %w", err)
		}
		return sub, nil
	}

	query := fmt.Sprintf(`
	INSERT INTO webhooks (url, name, events, created_at)
	VALUES (%s, %s, %s, %s)
	`, r.db.Placeholder(1), r.db.Placeholder(2), r.db.Placeholder(3), r.db.Placeholder(4))

	result, err := r.db.SQL.ExecContext(ctx, query,
		targetURL, name, string(eventsJSON), createdAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to insert subscription: %w", err)
	}

	sub.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription id: %w", err)
	}

	return sub, nil
}

func (r *SQLRegistry) Unregister(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM webhooks WHERE id = %s`, r.db.Placeholder(1))

	result, err := r.db.SQL.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *SQLRegistry) List(ctx context.Context) ([]Subscription, error) {
	query := `
	SELECT id, url, name, events, created_at, active, delivery_count, last_delivery
	FROM webhooks
	ORDER BY id
	`

	rows, err := r.db.SQL.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []Subscription{}

	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return subs, nil
}

// RecordDelivery is called once per subscription per emitted event, after
// the delivery sequence for that subscription has ended.
func (r *SQLRegistry) RecordDelivery(ctx context.Context, id int64, success bool, attempts int) error {
	if success {
		query := fmt.Sprintf(`
		UPDATE webhooks
		SET delivery_count = delivery_count + %s, last_delivery = %s
		WHERE id = %s
		`, r.db.Placeholder(1), r.db.Placeholder(2), r.db.Placeholder(3))

		_, err := r.db.SQL.ExecContext(ctx, query,
			attempts, time.Now().UTC().Format(time.RFC3339), id)
		if err != nil {
			return fmt.Errorf("failed to record delivery: %w", err)
		}
		return nil
	}

	query := fmt.Sprintf(`
	UPDATE webhooks
	SET delivery_count = delivery_count + %s
	WHERE id = %s
	`, r.db.Placeholder(1), r.db.Placeholder(2))

	_, err := r.db.SQL.ExecContext(ctx, query, attempts, id)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func scanSubscription(scan func(dest ...any) error) (*Subscription, error) {
	var (
		sub          Subscription
		eventsJSON   string
		createdStr   string
		activeInt    int
		lastDelivery sql.NullString
	)

	if err := scan(&sub.ID, &sub.URL, &sub.Name, &eventsJSON, &createdStr, &activeInt, &sub.DeliveryCount, &lastDelivery); err != nil {
		return nil, err
	}
	sub.Active = activeInt != 0

	if err := json.Unmarshal([]byte(eventsJSON), &sub.Events); err != nil {
		return nil, fmt.Errorf("failed to decode event list for subscription %d: %w", sub.ID, err)
	}

	createdAt, err := time.Parse(time.RFC3339, createdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for subscription %d: %w", sub.ID, err)
	}
	sub.CreatedAt = createdAt

	if lastDelivery.Valid {
		ts, err := time.Parse(time.RFC3339, lastDelivery.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_delivery for subscription %d: %w", sub.ID, err)
		}
		sub.LastDelivery = &ts
	}

	return &sub, nil
}
