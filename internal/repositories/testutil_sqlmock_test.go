package repositories

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// newMockDB wraps a go-sqlmock connection in sqlx with the postgres bind style.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })

	return sqlx.NewDb(sqldb, "postgres"), mock
}

var messageColumns = []string{"id", "sender_id", "sender_username", "room_id", "text", "formatting",
	"image_filename", "image_expires_at", "reply_to", "edited_at", "deleted_at", "reactions", "created_at"}

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func messageRow(rows *sqlmock.Rows, id int64, senderID any, username string, roomID int64, text, reactions string) *sqlmock.Rows {
	return rows.AddRow(id, senderID, username, roomID, text, []byte("{}"), nil, nil, nil, nil, nil, []byte(reactions), fixedTime.Add(time.Duration(id)*time.Second))
}
