package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationColumns = []string{"id", "type", "content", "posted_by_id", "posted_by_username",
	"target_department_name", "reactions", "read_by", "created_at"}

func TestMarkReadAddsReader(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT read_by FROM notifications WHERE id=\$1 FOR UPDATE`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"read_by"}).AddRow([]byte(`[1]`)))
	mock.ExpectExec(`UPDATE notifications SET read_by=\$2 WHERE id=\$1`).WithArgs(3, `[1,4]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkRead(context.Background(), 3, 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadTwiceIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT read_by FROM notifications`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"read_by"}).AddRow([]byte(`[1,4]`)))
	mock.ExpectRollback()

	require.NoError(t, repo.MarkRead(context.Background(), 3, 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadUnknownNotification(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT read_by FROM notifications`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"read_by"}))
	mock.ExpectRollback()

	require.ErrorIs(t, repo.MarkRead(context.Background(), 3, 4), ErrNotificationNotFound)
}

func TestDeleteNotificationMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectExec(`DELETE FROM notifications WHERE id=\$1`).WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.DeleteNotification(context.Background(), 8), ErrNotificationNotFound)
}

func TestListForDepartment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	rows := sqlmock.NewRows(notificationColumns).
		AddRow(2, "urgent", "Lab closed", 7, "gov", "Physics", []byte(`{}`), []byte(`[]`), fixedTime).
		AddRow(1, "regular", "Welcome", 1, "admin", nil, []byte(`{"🎉":[3]}`), []byte(`[3]`), fixedTime)

	mock.ExpectQuery(`WHERE n.target_department_name IS NULL OR n.target_department_name = \$1`).
		WithArgs("Physics").
		WillReturnRows(rows)

	list, err := repo.ListForDepartment(context.Background(), strPtr("Physics"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Physics", *list[0].TargetDepartment)
	assert.Nil(t, list[1].TargetDepartment)
	assert.True(t, list[1].ReadBy.Contains(3))
	assert.Equal(t, []int{3}, list[1].Reactions.Users("🎉"))
	require.NoError(t, mock.ExpectationsWereMet())
}
