package models

import (
	"time"

	"github.com/google/uuid"
)

// Room types and message types are plain strings validated at the edges;
// the database mirrors them as varchar columns.
const (
	RoomTypeGroup   = "group"
	RoomTypePrivate = "private"

	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Room is a named group conversation. Membership lives in room_members,
// not here.
type Room struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	RoomType    string    `json:"room_type"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomMember is the join table between rooms and users.
type RoomMember struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is immutable once created. Exactly one of RoomID and ReceiverID
// is set: RoomID for a group message, ReceiverID for a direct message.
// The database enforces this with a CHECK constraint.
//
// ID is bigserial, not UUID: messages are the highest-volume table and the
// monotonically increasing id doubles as the canonical history order.
type Message struct {
	ID         int64      `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	RoomID     *uuid.UUID `json:"room_id,omitempty"`
	ReceiverID *uuid.UUID `json:"receiver_id,omitempty"`
	Content    string     `json:"content"`
	Type       string     `json:"message_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsDirect reports whether the message is a 1:1 message.
func (m *Message) IsDirect() bool { return m.ReceiverID != nil }
