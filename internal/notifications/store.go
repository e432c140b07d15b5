package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is one in-app notification row, keyed by recipient.
type Notification struct {
	ID     uuid.UUID
	UserID string
	Title  string
	Body   string
	Time   time.Time
}

// Store persists notifications in PostgreSQL. The recent-by-user query is
// served by the composite (user_id, time DESC) index created in migrations.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one notification. Time comes from the database clock.
func (s *Store) Record(ctx context.Context, n Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO notifications (id, user_id, title, body, time)
		VALUES ($1, $2, $3, $4, now())
	`
	if _, err := s.db.ExecContext(ctx, query, n.ID, n.UserID, n.Title, n.Body); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListRecentByUser returns up to limit notifications for one user no older
// than since, newest first. This is the probe query the index checker runs
// to confirm the composite index exists and serves it.
func (s *Store) ListRecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]Notification, error) {
	query := `
		SELECT id, user_id, title, body, time
		FROM notifications
		WHERE user_id = $1 AND time >= $2
		ORDER BY time DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Time); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
