package presence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

func setupTable(t *testing.T, ttl time.Duration) (*Table, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	t.Cleanup(func() { client.Close() })
	return NewTable(client, ttl), client
}

func trackUser(t *testing.T, client *redis.Client, userID uuid.UUID) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		client.Del(ctx, userKey(userID))
		client.SRem(ctx, onlineSetKey, userID.String())
	})
}

func TestMarkOnlineAndLookup(t *testing.T) {
	table, client := setupTable(t, time.Minute)
	ctx := context.Background()
	userID := uuid.New()
	trackUser(t, client, userID)

	if err := table.MarkOnline(ctx, userID, "conn-1"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}

	connID, online, err := table.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !online || connID != "conn-1" {
		t.Fatalf("Lookup() = (%q, %v), want (conn-1, true)", connID, online)
	}
}

func TestMarkOnlineLastWriterWins(t *testing.T) {
	table, client := setupTable(t, time.Minute)
	ctx := context.Background()
	userID := uuid.New()
	trackUser(t, client, userID)

	if err := table.MarkOnline(ctx, userID, "conn-1"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}
	if err := table.MarkOnline(ctx, userID, "conn-2"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}

	connID, online, err := table.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !online || connID != "conn-2" {
		t.Fatalf("Lookup() = (%q, %v), want the superseding handle conn-2", connID, online)
	}
}

func TestMarkOfflineIsIdempotent(t *testing.T) {
	table, client := setupTable(t, time.Minute)
	ctx := context.Background()
	userID := uuid.New()
	trackUser(t, client, userID)

	if err := table.MarkOnline(ctx, userID, "conn-1"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}
	if err := table.MarkOffline(ctx, userID); err != nil {
		t.Fatalf("MarkOffline() error = %v", err)
	}
	// Absent entry: still no error.
	if err := table.MarkOffline(ctx, userID); err != nil {
		t.Fatalf("MarkOffline() on absent entry error = %v", err)
	}

	_, online, err := table.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if online {
		t.Fatal("user still online after MarkOffline")
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	table, client := setupTable(t, 100*time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()
	trackUser(t, client, userID)

	if err := table.MarkOnline(ctx, userID, "conn-1"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	_, online, err := table.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if online {
		t.Fatal("entry survived past its TTL")
	}
}

func TestTouchExtendsTTL(t *testing.T) {
	table, client := setupTable(t, 300*time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()
	trackUser(t, client, userID)

	if err := table.MarkOnline(ctx, userID, "conn-1"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}

	// Keep touching past the original expiry.
	for i := 0; i < 3; i++ {
		time.Sleep(150 * time.Millisecond)
		if err := table.Touch(ctx, userID); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
	}

	_, online, err := table.Lookup(ctx, userID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !online {
		t.Fatal("touched entry expired anyway")
	}
}

func TestListOnline(t *testing.T) {
	table, client := setupTable(t, time.Minute)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	trackUser(t, client, a)
	trackUser(t, client, b)

	if err := table.MarkOnline(ctx, a, "conn-a"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}
	if err := table.MarkOnline(ctx, b, "conn-b"); err != nil {
		t.Fatalf("MarkOnline() error = %v", err)
	}
	if err := table.MarkOffline(ctx, b); err != nil {
		t.Fatalf("MarkOffline() error = %v", err)
	}

	online, err := table.ListOnline(ctx)
	if err != nil {
		t.Fatalf("ListOnline() error = %v", err)
	}

	seen := make(map[uuid.UUID]bool, len(online))
	for _, id := range online {
		seen[id] = true
	}
	if !seen[a] {
		t.Error("online user missing from roster")
	}
	if seen[b] {
		t.Error("offline user still on roster")
	}
}
