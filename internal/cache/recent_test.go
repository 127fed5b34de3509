package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/models"
	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

// setupRecent needs Redis on localhost:6379; the suite skips cleanly when
// it isn't there. Small caps so the trim behavior is cheap to exercise.
func setupRecent(t *testing.T) (*Recent, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	recent := NewRecent(client, 3, time.Hour, 5, 24*time.Hour)
	t.Cleanup(func() { client.Close() })
	return recent, client
}

func testMessage(id int64, content string, roomID *uuid.UUID, receiverID *uuid.UUID) *models.Message {
	return &models.Message{
		ID:         id,
		SenderID:   uuid.New(),
		RoomID:     roomID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       models.MessageTypeText,
		CreatedAt:  time.Now().UTC(),
	}
}

func freshRoomKey(t *testing.T, client *redis.Client) (string, uuid.UUID) {
	t.Helper()
	roomID := uuid.New()
	key := RoomKey(roomID)
	t.Cleanup(func() { client.Del(context.Background(), key) })
	return key, roomID
}

func TestAppendAndReadNewestFirst(t *testing.T) {
	recent, client := setupRecent(t)
	ctx := context.Background()
	key, roomID := freshRoomKey(t, client)

	for i := int64(1); i <= 3; i++ {
		msg := testMessage(i, fmt.Sprintf("msg %d", i), &roomID, nil)
		if err := recent.Append(ctx, key, msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := recent.ReadRecent(ctx, key, 10)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadRecent() returned %d messages, want 3", len(got))
	}
	for i, msg := range got {
		wantID := int64(3 - i)
		if msg.ID != wantID {
			t.Errorf("position %d has id %d, want %d (newest first)", i, msg.ID, wantID)
		}
	}
}

func TestAppendNeverExceedsCap(t *testing.T) {
	recent, client := setupRecent(t)
	ctx := context.Background()
	key, roomID := freshRoomKey(t, client)

	// Cap is 3; append 4 and ask for more than the cap.
	for i := int64(1); i <= 4; i++ {
		if err := recent.Append(ctx, key, testMessage(i, "x", &roomID, nil)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := recent.ReadRecent(ctx, key, 8)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadRecent() returned %d messages, want cap of 3", len(got))
	}
	if got[0].ID != 4 {
		t.Errorf("newest entry id = %d, want 4", got[0].ID)
	}
	// The oldest entry was trimmed away.
	for _, msg := range got {
		if msg.ID == 1 {
			t.Error("entry past the cap is still present")
		}
	}
}

func TestReadRecentMissIsEmptyNotError(t *testing.T) {
	recent, client := setupRecent(t)
	key, _ := freshRoomKey(t, client)

	got, err := recent.ReadRecent(context.Background(), key, 10)
	if err != nil {
		t.Fatalf("ReadRecent() on miss error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ReadRecent() on miss returned %d messages, want 0", len(got))
	}
}

func TestInvalidateDropsConversation(t *testing.T) {
	recent, client := setupRecent(t)
	ctx := context.Background()
	key, roomID := freshRoomKey(t, client)

	if err := recent.Append(ctx, key, testMessage(1, "x", &roomID, nil)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := recent.Invalidate(ctx, key); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	got, err := recent.ReadRecent(ctx, key, 10)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("conversation still cached after Invalidate: %d entries", len(got))
	}
}

func TestDirectCapIsSeparateFromRoomCap(t *testing.T) {
	recent, client := setupRecent(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	key := DirectKey(a, b)
	t.Cleanup(func() { client.Del(context.Background(), key) })

	// Direct cap is 5 in this fixture; 6 appends keep 5.
	for i := int64(1); i <= 6; i++ {
		if err := recent.Append(ctx, key, testMessage(i, "x", nil, &b)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := recent.ReadRecent(ctx, key, 10)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("direct conversation holds %d entries, want 5", len(got))
	}
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if DirectKey(a, b) != DirectKey(b, a) {
		t.Errorf("DirectKey(a,b) = %q, DirectKey(b,a) = %q; want equal",
			DirectKey(a, b), DirectKey(b, a))
	}
	if DirectKey(a, b) == DirectKey(a, uuid.New()) {
		t.Error("distinct pairs share a conversation key")
	}
}

func TestConversationKeySelection(t *testing.T) {
	roomID := uuid.New()
	sender, receiver := uuid.New(), uuid.New()

	roomMsg := testMessage(1, "x", &roomID, nil)
	if got := ConversationKey(roomMsg); got != RoomKey(roomID) {
		t.Errorf("ConversationKey(room msg) = %q, want %q", got, RoomKey(roomID))
	}

	directMsg := testMessage(2, "x", nil, &receiver)
	directMsg.SenderID = sender
	if got := ConversationKey(directMsg); got != DirectKey(sender, receiver) {
		t.Errorf("ConversationKey(direct msg) = %q, want %q", got, DirectKey(sender, receiver))
	}
}
