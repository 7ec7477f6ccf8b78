package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// The users table is owned by the auth component; it is created here only so
// a fresh database has the columns the portal reads.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(80) NOT NULL UNIQUE,
            role VARCHAR(20) NOT NULL,
            department_name VARCHAR(100),
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            name VARCHAR(100) NOT NULL,
            type VARCHAR(20) NOT NULL,
            department_name VARCHAR(100),
            created_by_id INT,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(name, type)
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            sender_id INT,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            text TEXT NOT NULL DEFAULT '',
            formatting JSON NOT NULL DEFAULT '{}',
            image_filename VARCHAR(255),
            image_expires_at TIMESTAMPTZ,
            reply_to INT REFERENCES messages(id) ON DELETE SET NULL,
            edited_at TIMESTAMPTZ,
            deleted_at TIMESTAMPTZ,
            reactions JSON NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS notifications (
            id SERIAL PRIMARY KEY,
            type VARCHAR(20) NOT NULL,
            content TEXT NOT NULL,
            posted_by_id INT NOT NULL,
            target_department_name VARCHAR(100),
            reactions JSON NOT NULL DEFAULT '{}',
            read_by JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_dept_created ON notifications (target_department_name, created_at);`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
            id SERIAL PRIMARY KEY,
            actor_id INT,
            action VARCHAR(100) NOT NULL,
            target_type VARCHAR(50),
            target_id INT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	// json keeps reaction keys in the order they were written; jsonb re-sorts them.
	`ALTER TABLE messages ALTER COLUMN reactions DROP DEFAULT, ALTER COLUMN reactions TYPE JSON USING reactions::text::json, ALTER COLUMN reactions SET DEFAULT '{}';`,
	`ALTER TABLE messages ALTER COLUMN formatting DROP DEFAULT, ALTER COLUMN formatting TYPE JSON USING formatting::text::json, ALTER COLUMN formatting SET DEFAULT '{}';`,
	`ALTER TABLE notifications ALTER COLUMN reactions DROP DEFAULT, ALTER COLUMN reactions TYPE JSON USING reactions::text::json, ALTER COLUMN reactions SET DEFAULT '{}';`,
}

func runMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
