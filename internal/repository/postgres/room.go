package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatrelay/internal/models"
)

type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func (s *RoomStore) Create(ctx context.Context, name, description, roomType string, createdBy uuid.UUID) (*models.Room, error) {
	query := `
		INSERT INTO rooms (id, name, description, room_type, created_by, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		RETURNING id, name, description, room_type, created_by, created_at`

	var r models.Room
	err := s.pool.QueryRow(ctx, query, name, description, roomType, createdBy).Scan(
		&r.ID,
		&r.Name,
		&r.Description,
		&r.RoomType,
		&r.CreatedBy,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return &r, nil
}

func (s *RoomStore) GetByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	query := `
		SELECT id, name, description, room_type, created_by, created_at
		FROM rooms
		WHERE id = $1`

	var r models.Room
	err := s.pool.QueryRow(ctx, query, roomID).Scan(
		&r.ID,
		&r.Name,
		&r.Description,
		&r.RoomType,
		&r.CreatedBy,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &r, nil
}

func (s *RoomStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Room, error) {
	query := `
		SELECT r.id, r.name, r.description, r.room_type, r.created_by, r.created_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]models.Room, 0)
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Description,
			&r.RoomType,
			&r.CreatedBy,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}
