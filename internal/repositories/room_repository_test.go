package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-service/internal/models"
)

var roomRowColumns = []string{"id", "name", "type", "department_name", "created_by_id", "created_at"}

func strPtr(s string) *string { return &s }

func TestGetRoomNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepo(db)

	mock.ExpectQuery(`SELECT .* FROM rooms WHERE id=\$1`).WithArgs(42).
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	_, err := repo.GetRoom(context.Background(), 42)
	require.ErrorIs(t, err, ErrRoomNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRoomsVisibleToFiltersDepartments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepo(db)

	rows := sqlmock.NewRows(roomRowColumns).
		AddRow(1, "General", "General", nil, nil, fixedTime).
		AddRow(2, "Physics", "Department", "Physics", nil, fixedTime).
		AddRow(3, "Chemistry", "Department", "Chemistry", nil, fixedTime).
		AddRow(4, "Study group", "Custom", nil, 9, fixedTime)

	mock.ExpectQuery(`SELECT .* FROM rooms ORDER BY id ASC`).WillReturnRows(rows)

	student := models.User{ID: 5, Username: "bob", Role: models.RoleStudent, Department: strPtr("Physics")}
	rooms, err := repo.ListRoomsVisibleTo(context.Background(), student)
	require.NoError(t, err)

	var ids []int
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{1, 2, 4}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRoomConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepo(db)

	mock.ExpectQuery(`INSERT INTO rooms .* ON CONFLICT \(name, type\) DO NOTHING`).
		WithArgs("Study group", "Custom", nil, 9).
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	creator := 9
	_, err := repo.CreateRoom(context.Background(), models.Room{Name: "Study group", Kind: models.RoomCustom, CreatedByID: &creator})
	require.ErrorIs(t, err, ErrRoomExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoomRejectsSystemRooms(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT type FROM rooms WHERE id=\$1 FOR UPDATE`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("General"))
	mock.ExpectRollback()

	require.ErrorIs(t, repo.DeleteRoom(context.Background(), 1), ErrSystemRoom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoomCustom(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT type FROM rooms`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("Custom"))
	mock.ExpectExec(`DELETE FROM rooms WHERE id=\$1`).WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteRoom(context.Background(), 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSystemRooms(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO rooms`).WithArgs("General", "General", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO rooms`).WithArgs("Physics", "Department", "Physics").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`INSERT INTO rooms`).WithArgs("Chemistry", "Department", "Chemistry").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.EnsureSystemRooms(context.Background(), []string{"Physics", "Chemistry"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
