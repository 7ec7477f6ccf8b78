package models

import "time"

// AIDisplayName is the sender name rendered for messages authored by the AI bridge.
const AIDisplayName = "AI"

// Message is a chat message. A nil SenderID marks an AI-authored message.
// DeletedAt is a tombstone: deleted messages keep their id for replies and
// reactions but are excluded from history reads.
type Message struct {
	ID             int        `db:"id" json:"id"`
	SenderID       *int       `db:"sender_id" json:"sender_id"`
	SenderUsername string     `db:"sender_username" json:"sender_username"`
	RoomID         int        `db:"room_id" json:"room_id"`
	Text           string     `db:"text" json:"text"`
	Formatting     Formatting `db:"formatting" json:"formatting"`
	ImageFilename  *string    `db:"image_filename" json:"image_filename"`
	ImageExpiresAt *time.Time `db:"image_expires_at" json:"image_expires_at"`
	ReplyTo        *int       `db:"reply_to" json:"reply_to"`
	EditedAt       *time.Time `db:"edited_at" json:"edited_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at"`
	Reactions      Reactions  `db:"reactions" json:"reactions"`
	CreatedAt      time.Time  `db:"created_at" json:"timestamp"`
}

// Deleted reports whether the message carries a tombstone.
func (m Message) Deleted() bool {
	return m.DeletedAt != nil
}

// AIAuthored reports whether the message was written by the AI bridge.
func (m Message) AIAuthored() bool {
	return m.SenderID == nil
}

// DisplayName returns the sender name used in AI context and push titles.
func (m Message) DisplayName() string {
	if m.SenderID == nil || m.SenderUsername == "" {
		return AIDisplayName
	}
	return m.SenderUsername
}

// NewMessage carries the fields of a message about to be persisted.
type NewMessage struct {
	SenderID       *int
	RoomID         int
	Text           string
	Formatting     Formatting
	ImageFilename  *string
	ImageExpiresAt *time.Time
	ReplyTo        *int
}
