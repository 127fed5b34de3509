package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/models"
)

// Every method takes a context.Context: all of these hit the network, and
// the caller's deadline/cancellation must propagate into the query.

// RoomRepository defines the contract for room data operations.
type RoomRepository interface {
	// Create inserts a new room and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, name, description, roomType string, createdBy uuid.UUID) (*models.Room, error)

	// GetByID returns a single room. Returns nil, nil if not found.
	GetByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error)

	// ListForUser returns the rooms the user is a member of, newest first.
	// Returns empty slice (not nil) so JSON serializes to [] not null.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Room, error)
}

// MembershipRepository handles who belongs to which room. IsMember is the
// hot path: the router checks it before every join and every room send.
type MembershipRepository interface {
	// AddMember adds a user to a room with the given role. Idempotent.
	AddMember(ctx context.Context, roomID uuid.UUID, userID uuid.UUID, role string) error

	// RemoveMember removes a user from a room. No-op if not a member.
	RemoveMember(ctx context.Context, roomID uuid.UUID, userID uuid.UUID) error

	// ListMembers returns all members of a room.
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error)

	// IsMember checks if a user belongs to a room.
	IsMember(ctx context.Context, roomID uuid.UUID, userID uuid.UUID) (bool, error)
}

// MessageRepository handles chat message persistence. The store is
// authoritative: ids are assigned here and define canonical history order.
type MessageRepository interface {
	// Create persists a message and returns it with ID and CreatedAt
	// populated. Exactly one of roomID and receiverID must be non-nil;
	// the messages table backs this with a CHECK constraint.
	Create(ctx context.Context, senderID uuid.UUID, roomID, receiverID *uuid.UUID, content, msgType string) (*models.Message, error)

	// ListByRoom returns a page of room messages, newest first.
	ListByRoom(ctx context.Context, roomID uuid.UUID, page, perPage int) ([]models.Message, error)

	// ListDirect returns a page of the 1:1 conversation between two users,
	// newest first, regardless of which of the two sent each message.
	ListDirect(ctx context.Context, userA, userB uuid.UUID, page, perPage int) ([]models.Message, error)
}

// UserRepository handles user data.
type UserRepository interface {
	// Create inserts a new user with a pre-hashed password.
	Create(ctx context.Context, username, email, passwordHash string) (*models.User, error)

	// GetByID returns a user by ID. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByUsername returns a user by username. Returns nil, nil if not found.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByIDs returns the users for a set of ids, in no particular order.
	GetByIDs(ctx context.Context, userIDs []uuid.UUID) ([]models.User, error)
}
