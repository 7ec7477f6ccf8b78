package models

import "time"

// RoomKind classifies a room.
type RoomKind string

const (
	RoomGeneral    RoomKind = "General"
	RoomDepartment RoomKind = "Department"
	RoomCustom     RoomKind = "Custom"
)

// Valid reports whether k is a known room kind.
func (k RoomKind) Valid() bool {
	return k == RoomGeneral || k == RoomDepartment || k == RoomCustom
}

// System reports whether rooms of this kind are created by the portal itself
// and therefore cannot be deleted.
func (k RoomKind) System() bool {
	return k == RoomGeneral || k == RoomDepartment
}

// Room is a chat channel.
type Room struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Kind        RoomKind  `db:"type" json:"type"`
	Department  *string   `db:"department_name" json:"department_name"`
	CreatedByID *int      `db:"created_by_id" json:"created_by_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
