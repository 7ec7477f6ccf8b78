package models

import "encoding/json"

// Inbound realtime event names.
const (
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventSendMessage    = "send_message"
	EventEditMessage    = "edit_message"
	EventDeleteMessage  = "delete_message"
	EventReactToMessage = "react_to_message"
	EventTyping         = "typing"
)

// Outbound realtime event names.
const (
	EventJoinedRoom             = "joined_room"
	EventLeftRoom               = "left_room"
	EventNewMessage             = "new_message"
	EventMessageEdited          = "message_edited"
	EventMessageDeleted         = "message_deleted"
	EventMessageReactionUpdated = "message_reaction_updated"
	EventUserTyping             = "user_typing"
	EventError                  = "error"
	EventNewNotification        = "new_notification"
	EventNotificationUpdated    = "notification_updated"
	EventNotificationDeleted    = "notification_deleted"
)

// InboundFrame is a client frame read from the websocket.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutboundEvent is written to websocket clients.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type RoomRequest struct {
	RoomID int `json:"room_id"`
}

type SendMessageRequest struct {
	RoomID         int        `json:"room_id"`
	Text           string     `json:"text"`
	Formatting     Formatting `json:"formatting"`
	ImageFilename  *string    `json:"image_filename,omitempty"`
	ImageExpiresAt *string    `json:"image_expires_at,omitempty"`
	ReplyTo        *int       `json:"reply_to,omitempty"`
}

type EditMessageRequest struct {
	MessageID int    `json:"message_id"`
	Text      string `json:"text"`
}

type MessageRequest struct {
	MessageID int `json:"message_id"`
}

type ReactRequest struct {
	MessageID int    `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type JoinedRoomPayload struct {
	RoomID   int    `json:"room_id"`
	RoomName string `json:"room_name"`
}

type LeftRoomPayload struct {
	RoomID int `json:"room_id"`
}

type MessageDeletedPayload struct {
	MessageID int `json:"message_id"`
}

type ReactionUpdatedPayload struct {
	MessageID int       `json:"message_id"`
	Reactions Reactions `json:"reactions"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
	RoomID   int    `json:"room_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type NotificationDeletedPayload struct {
	ID int `json:"id"`
}
