package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
	"portal-service/internal/policy"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrSystemRoom   = errors.New("system rooms cannot be deleted")
)

const roomColumns = `id, name, type, department_name, created_by_id, created_at`

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListRoomsVisibleTo(ctx context.Context, user models.User) ([]models.Room, error)
	CreateRoom(ctx context.Context, room models.Room) (models.Room, error)
	DeleteRoom(ctx context.Context, roomID int) error
	EnsureSystemRooms(ctx context.Context, departments []string) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListRooms returns every room, oldest first.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms ORDER BY id ASC`)
	return rooms, err
}

// ListRoomsVisibleTo returns the rooms user may join. Visibility is decided by
// policy.CanViewRoom so listing and joining never disagree.
func (r *RoomRepo) ListRoomsVisibleTo(ctx context.Context, user models.User) ([]models.Room, error) {
	rooms, err := r.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		if policy.CanViewRoom(user, room).Allowed {
			visible = append(visible, room)
		}
	}
	return visible, nil
}

// CreateRoom inserts a room; a room with the same name and kind yields ErrRoomExists.
func (r *RoomRepo) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	var created models.Room
	err := r.db.GetContext(ctx, &created, `INSERT INTO rooms (name, type, department_name, created_by_id) VALUES ($1, $2, $3, $4)
        ON CONFLICT (name, type) DO NOTHING
        RETURNING `+roomColumns, room.Name, room.Kind, room.Department, room.CreatedByID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomExists
	}
	return created, err
}

// DeleteRoom removes a custom room and, by cascade, its messages.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var kind models.RoomKind
	if err := tx.GetContext(ctx, &kind, `SELECT type FROM rooms WHERE id=$1 FOR UPDATE`, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return err
	}
	if kind.System() {
		return ErrSystemRoom
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID); err != nil {
		return err
	}
	return tx.Commit()
}

// EnsureSystemRooms creates the General room and one Department room per
// department when they do not exist yet.
func (r *RoomRepo) EnsureSystemRooms(ctx context.Context, departments []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insert = `INSERT INTO rooms (name, type, department_name) VALUES ($1, $2, $3) ON CONFLICT (name, type) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, "General", models.RoomGeneral, nil); err != nil {
		return err
	}
	for _, dept := range departments {
		if _, err := tx.ExecContext(ctx, insert, dept, models.RoomDepartment, dept); err != nil {
			return err
		}
	}
	return tx.Commit()
}
