// Command indexcheck verifies that the composite notifications index exists
// and serves the recent-notifications query. It applies migrations, runs the
// probe query (user equality, 48h cutoff, newest first, limit 1), and prints
// the plan the database chose.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/notifications"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/config"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/logger"
	"github.com/E-m-i-n-e-n-c-e/Revent/migrations"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrations.Up(ctx, db); err != nil {
		log.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	store := notifications.New(db)
	cutoff := time.Now().Add(-48 * time.Hour)
	if _, err := store.ListRecentByUser(ctx, "test-user-id", cutoff, 1); err != nil {
		log.Error("probe query failed", "error", err)
		os.Exit(1)
	}
	log.Info("probe query ok", "cutoff", cutoff)

	plan, err := explainProbe(ctx, db, cutoff)
	if err != nil {
		log.Error("explain probe query", "error", err)
		os.Exit(1)
	}
	fmt.Println(plan)
}

// explainProbe returns the plan for the probe query so an operator can
// confirm notifications_user_time_idx is used.
func explainProbe(ctx context.Context, db *sql.DB, cutoff time.Time) (string, error) {
	query := `
		EXPLAIN
		SELECT id, user_id, title, body, time
		FROM notifications
		WHERE user_id = $1 AND time >= $2
		ORDER BY time DESC
		LIMIT 1
	`
	rows, err := db.QueryContext(ctx, query, "test-user-id", cutoff)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var plan string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", err
		}
		plan += line + "\n"
	}
	return plan, rows.Err()
}
