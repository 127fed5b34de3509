package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatrelay/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Create persists a message. Messages use bigserial, so Postgres assigns
// the id; concurrent inserts to the same room each get a distinct,
// strictly increasing id. The CHECK constraint on the table rejects rows
// with both or neither of room_id/receiver_id.
func (s *MessageStore) Create(ctx context.Context, senderID uuid.UUID, roomID, receiverID *uuid.UUID, content, msgType string) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, room_id, receiver_id, content, message_type, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, sender_id, room_id, receiver_id, content, message_type, created_at`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, senderID, roomID, receiverID, content, msgType).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RoomID,
		&msg.ReceiverID,
		&msg.Content,
		&msg.Type,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListByRoom returns one page of a room's history, newest first. Callers
// reverse for chronological display. ORDER BY id DESC because the
// bigserial id is the canonical order.
func (s *MessageStore) ListByRoom(ctx context.Context, roomID uuid.UUID, page, perPage int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	query := `
		SELECT id, sender_id, room_id, receiver_id, content, message_type, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	return s.queryMessages(ctx, query, roomID, perPage, (page-1)*perPage)
}

// ListDirect returns one page of the 1:1 conversation between two users,
// newest first, in either direction.
func (s *MessageStore) ListDirect(ctx context.Context, userA, userB uuid.UUID, page, perPage int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	query := `
		SELECT id, sender_id, room_id, receiver_id, content, message_type, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	return s.queryMessages(ctx, query, userA, userB, perPage, (page-1)*perPage)
}

func (s *MessageStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RoomID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.Type,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
