package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool and applies migrations.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(150) NOT NULL UNIQUE,
            email VARCHAR(254) NOT NULL DEFAULT '',
            display_name VARCHAR(150) NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
            user_id INT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            contact_number VARCHAR(20) NOT NULL DEFAULT '',
            bio TEXT NOT NULL DEFAULT '',
            allow_messages BOOLEAN NOT NULL DEFAULT TRUE,
            notify_email BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS items (
            id SERIAL PRIMARY KEY,
            title VARCHAR(100) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status VARCHAR(5) NOT NULL CHECK (status IN ('lost', 'found')),
            photo_url TEXT NOT NULL DEFAULT '',
            location VARCHAR(100) NOT NULL DEFAULT '',
            reported_by INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            is_returned BOOLEAN NOT NULL DEFAULT FALSE,
            date_reported TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            sender_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            recipient_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            item_id INT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
            content TEXT NOT NULL DEFAULT '',
            image_path TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_by_sender BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_by_recipient BOOLEAN NOT NULL DEFAULT FALSE,
            CHECK (sender_id <> recipient_id),
            CHECK (content <> '' OR image_path IS NOT NULL)
        );`,
	`CREATE INDEX IF NOT EXISTS messages_recipient_unread_idx ON messages (recipient_id, is_read);`,
	`CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages (sender_id);`,
	`CREATE INDEX IF NOT EXISTS messages_item_idx ON messages (item_id);`,
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
