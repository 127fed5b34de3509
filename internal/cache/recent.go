// Package cache keeps a bounded, newest-first ring of recent messages per
// conversation in Redis. The durable store stays authoritative: Append is
// only called after a successful insert, and an empty read is a cache miss
// the caller answers from Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/models"
	"github.com/redis/go-redis/v9"
)

// RoomKey is the conversation key for a room.
func RoomKey(roomID uuid.UUID) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// DirectKey is the conversation key for a 1:1 chat. The two user ids are
// ordered so both participants resolve the same key.
func DirectKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("private:%s:%s:messages", lo, hi)
}

// ConversationKey derives the cache key for a persisted message.
func ConversationKey(msg *models.Message) string {
	if msg.RoomID != nil {
		return RoomKey(*msg.RoomID)
	}
	return DirectKey(msg.SenderID, *msg.ReceiverID)
}

// Recent is the Redis-backed recent-message cache. Rooms and direct chats
// carry separate caps and TTLs.
type Recent struct {
	client    *redis.Client
	roomCap   int
	roomTTL   time.Duration
	directCap int
	directTTL time.Duration
}

func NewRecent(client *redis.Client, roomCap int, roomTTL time.Duration, directCap int, directTTL time.Duration) *Recent {
	return &Recent{
		client:    client,
		roomCap:   roomCap,
		roomTTL:   roomTTL,
		directCap: directCap,
		directTTL: directTTL,
	}
}

func (r *Recent) limits(key string) (int, time.Duration) {
	if strings.HasPrefix(key, "private:") {
		return r.directCap, r.directTTL
	}
	return r.roomCap, r.roomTTL
}

// Append pushes msg to the front of the conversation's ring, trims to the
// cap, and resets the TTL. The three commands run in one pipeline so two
// concurrent appends to the same key interleave without ever truncating
// below the cap or losing a trim.
//
// Must be called only after the durable write committed.
func (r *Recent) Append(ctx context.Context, key string, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	keep, ttl := r.limits(key)
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(keep-1))
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache append: %w", err)
	}
	return nil
}

// ReadRecent returns up to count cached messages, newest first. A miss or
// expired key yields an empty slice, not an error: the caller falls back
// to the durable store.
func (r *Recent) ReadRecent(ctx context.Context, key string, count int) ([]models.Message, error) {
	raw, err := r.client.LRange(ctx, key, 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache read: %w", err)
	}

	messages := make([]models.Message, 0, len(raw))
	for _, entry := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// A corrupt entry poisons the whole ring; drop it and let
			// the caller rebuild from Postgres.
			if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
				return nil, fmt.Errorf("drop corrupt cache: %w", delErr)
			}
			return []models.Message{}, nil
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Invalidate drops a conversation's cached ring.
func (r *Recent) Invalidate(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
