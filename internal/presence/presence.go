// Package presence tracks which users are online and on which connection,
// backed by Redis so the data survives process restarts and can be shared.
//
// Layout:
//
//	user:{id}:online  -> connection id, with a TTL (liveness safeguard)
//	online_users      -> set of user ids for roster reads
//
// A user's entry is a plain SET: the last connection to authenticate wins,
// so a second tab silently supersedes the stored handle for direct-message
// routing.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const onlineSetKey = "online_users"

// Table is the Redis-backed presence table.
type Table struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTable(client *redis.Client, ttl time.Duration) *Table {
	return &Table{client: client, ttl: ttl}
}

func userKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:online", userID)
}

// MarkOnline records connID as the delivery target for userID,
// overwriting any prior handle and resetting the TTL.
func (t *Table) MarkOnline(ctx context.Context, userID uuid.UUID, connID string) error {
	pipe := t.client.Pipeline()
	pipe.Set(ctx, userKey(userID), connID, t.ttl)
	pipe.SAdd(ctx, onlineSetKey, userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark online: %w", err)
	}
	return nil
}

// MarkOffline removes the user's presence entry. Idempotent.
func (t *Table) MarkOffline(ctx context.Context, userID uuid.UUID) error {
	pipe := t.client.Pipeline()
	pipe.Del(ctx, userKey(userID))
	pipe.SRem(ctx, onlineSetKey, userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark offline: %w", err)
	}
	return nil
}

// Touch refreshes the TTL without changing the stored handle. Called on
// connection activity so long-lived connections don't expire while alive.
// A no-op if the entry already expired.
func (t *Table) Touch(ctx context.Context, userID uuid.UUID) error {
	if err := t.client.Expire(ctx, userKey(userID), t.ttl).Err(); err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

// Lookup resolves the live connection id for a user. ok is false when the
// user is offline or the entry has expired.
func (t *Table) Lookup(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	connID, err := t.client.Get(ctx, userKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup presence: %w", err)
	}
	return connID, true, nil
}

// ListOnline returns the ids of all currently-online users.
//
// The roster set is not TTL-bound, so a user whose per-user key expired
// ungracefully may linger here until the next explicit MarkOffline; the
// per-user key remains the authority for delivery decisions.
func (t *Table) ListOnline(ctx context.Context) ([]uuid.UUID, error) {
	raw, err := t.client.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list online: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
