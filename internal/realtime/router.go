// Package realtime is the message routing and presence core: it binds
// authenticated users to live WebSocket connections, multiplexes room
// membership onto connection groups, and fans persisted messages out to
// the exact set of live targets.
package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/chatrelay/internal/auth"
	"github.com/lalith-99/chatrelay/internal/cache"
	"github.com/lalith-99/chatrelay/internal/models"
	"github.com/lalith-99/chatrelay/internal/repository"
)

// eventTimeout caps the store and cache calls made on behalf of a single
// inbound event.
const eventTimeout = 10 * time.Second

// PresenceTable is the hub's view of the presence store.
type PresenceTable interface {
	MarkOnline(ctx context.Context, userID uuid.UUID, connID string) error
	MarkOffline(ctx context.Context, userID uuid.UUID) error
	Touch(ctx context.Context, userID uuid.UUID) error
	Lookup(ctx context.Context, userID uuid.UUID) (string, bool, error)
}

// RecentCache is the hub's view of the recent-message cache. The hub only
// ever writes; reads happen on the history endpoints.
type RecentCache interface {
	Append(ctx context.Context, key string, msg *models.Message) error
}

// Hub is the connection router. It owns all live connections and the
// per-room joined sets; everything under mu is touched only while holding
// it, and never across a store or network call.
type Hub struct {
	verifier auth.Verifier
	members  repository.MembershipRepository
	messages repository.MessageRepository
	presence PresenceTable
	recent   RecentCache
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[string]*Conn                 // connection handle -> connection
	rooms map[uuid.UUID]map[*Conn]struct{} // live joined sets, per room
}

func NewHub(
	verifier auth.Verifier,
	members repository.MembershipRepository,
	messages repository.MessageRepository,
	presence PresenceTable,
	recent RecentCache,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		verifier: verifier,
		members:  members,
		messages: messages,
		presence: presence,
		recent:   recent,
		logger:   logger,
		conns:    make(map[string]*Conn),
		rooms:    make(map[uuid.UUID]map[*Conn]struct{}),
	}
}

func (h *Hub) addConn(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

// dropConn is the transport-loss path out of the read pump. Equivalent to
// an explicit disconnect event.
func (h *Hub) dropConn(c *Conn) {
	h.disconnect(c)
}

// handleFrame dispatches one inbound frame for one connection. The read
// pump calls it serially per connection; different connections' frames
// interleave freely. A failure here is local to c: it produces at most an
// error frame to c and never touches any other connection's state.
func (h *Hub) handleFrame(c *Conn, data []byte) {
	h.mu.Lock()
	closed := c.state == stateClosed
	h.mu.Unlock()
	if closed {
		// Terminal state: nothing to notify, nothing to do.
		return
	}

	ev, err := DecodeInbound(data)
	if err != nil {
		h.reportError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch e := ev.(type) {
	case ConnectEvent:
		err = h.handleConnect(ctx, c, e)
	case DisconnectEvent:
		h.disconnect(c)
	case JoinRoomEvent:
		err = h.handleJoin(ctx, c, e)
	case LeaveRoomEvent:
		h.handleLeave(c, e)
	case SendMessageEvent:
		err = h.handleSend(ctx, c, e)
	}
	if err != nil {
		h.reportError(c, err)
	}
}

// reportError maps a handler failure onto the wire. Only an invalid
// credential tears the transport down; every other failure leaves the
// connection open.
func (h *Hub) reportError(c *Conn, err error) {
	var (
		ve *ValidationError
		pe *PersistenceError
	)
	switch {
	case errors.Is(err, ErrInvalidCredential):
		c.deliver(errorFrame("invalid credential"))
		h.disconnect(c)
	case errors.Is(err, ErrUnauthenticated):
		c.deliver(errorFrame("not authenticated"))
	case errors.Is(err, ErrAlreadyAuthenticated):
		c.deliver(errorFrame("already authenticated"))
	case errors.As(err, &ve):
		c.deliver(errorFrame(ve.Reason))
	case errors.As(err, &pe):
		h.logger.Error("event persistence failure", zap.String("conn_id", c.id), zap.Error(pe.Err))
		c.deliver(errorFrame("operation failed"))
	default:
		h.logger.Error("event failure", zap.String("conn_id", c.id), zap.Error(err))
		c.deliver(errorFrame("operation failed"))
	}
}

// handleConnect verifies the credential and binds the user to the
// connection: unauthenticated -> authenticated, presence entry written,
// user_online broadcast. Re-authentication is not permitted.
func (h *Hub) handleConnect(ctx context.Context, c *Conn, ev ConnectEvent) error {
	h.mu.Lock()
	state := c.state
	h.mu.Unlock()
	if state == stateAuthenticated {
		return ErrAlreadyAuthenticated
	}

	if ev.Token == "" {
		return ErrInvalidCredential
	}
	identity, err := h.verifier.Verify(ev.Token)
	if err != nil {
		return ErrInvalidCredential
	}

	h.mu.Lock()
	if c.state != stateUnauthenticated {
		h.mu.Unlock()
		return nil
	}
	c.state = stateAuthenticated
	c.identity = identity
	h.mu.Unlock()

	// Presence write and broadcast are best-effort: a Redis hiccup must
	// not fail an otherwise valid authentication.
	if err := h.presence.MarkOnline(ctx, identity.UserID, c.id); err != nil {
		h.logger.Warn("presence mark online failed",
			zap.String("user_id", identity.UserID.String()), zap.Error(err))
	}
	h.broadcast(userOnlineFrame(identity.UserID, identity.Username))

	h.logger.Info("connection authenticated",
		zap.String("conn_id", c.id),
		zap.String("user_id", identity.UserID.String()),
		zap.String("username", identity.Username))
	return nil
}

// disconnect transitions the connection to closed from any state:
// presence entry removed, all room joins released, user_offline broadcast
// if a user was bound. Idempotent; never fails.
func (h *Hub) disconnect(c *Conn) {
	h.mu.Lock()
	if c.state == stateClosed {
		h.mu.Unlock()
		return
	}
	wasAuthenticated := c.state == stateAuthenticated
	identity := c.identity
	c.state = stateClosed
	delete(h.conns, c.id)
	for roomID := range c.rooms {
		h.removeFromRoomLocked(roomID, c)
	}
	c.rooms = make(map[uuid.UUID]struct{})
	h.mu.Unlock()
	c.closeSend()

	if !wasAuthenticated {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := h.presence.MarkOffline(ctx, identity.UserID); err != nil {
		h.logger.Warn("presence mark offline failed",
			zap.String("user_id", identity.UserID.String()), zap.Error(err))
	}
	h.broadcast(userOfflineFrame(identity.UserID))

	h.logger.Info("connection closed",
		zap.String("conn_id", c.id),
		zap.String("user_id", identity.UserID.String()))
}

// handleJoin adds the connection to a room's live broadcast set. Durable
// membership is the precondition; joining is connection-local and does
// not touch the store.
func (h *Hub) handleJoin(ctx context.Context, c *Conn, ev JoinRoomEvent) error {
	identity, ok := h.boundIdentity(c)
	if !ok {
		return ErrUnauthenticated
	}
	if ev.RoomID == uuid.Nil {
		return &ValidationError{Reason: "room_id must not be empty"}
	}

	isMember, err := h.members.IsMember(ctx, ev.RoomID, identity.UserID)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if !isMember {
		return &ValidationError{Reason: "not a room member"}
	}

	h.mu.Lock()
	if c.state != stateAuthenticated {
		// Raced with a disconnect while the membership check was in
		// flight; the connection is gone, nothing to join.
		h.mu.Unlock()
		return nil
	}
	c.rooms[ev.RoomID] = struct{}{}
	set := h.rooms[ev.RoomID]
	if set == nil {
		set = make(map[*Conn]struct{})
		h.rooms[ev.RoomID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	c.deliver(joinedRoomFrame(ev.RoomID))
	return nil
}

// handleLeave removes the connection from a room's live set. Silent no-op
// when not authenticated or not joined.
func (h *Hub) handleLeave(c *Conn, ev LeaveRoomEvent) {
	h.mu.Lock()
	if c.state != stateAuthenticated {
		h.mu.Unlock()
		return
	}
	if _, joined := c.rooms[ev.RoomID]; !joined {
		h.mu.Unlock()
		return
	}
	delete(c.rooms, ev.RoomID)
	h.removeFromRoomLocked(ev.RoomID, c)
	h.mu.Unlock()

	c.deliver(leftRoomFrame(ev.RoomID))
}

// handleSend validates, persists, caches, and fans out one message, in
// that order. The durable write is the only blocking dependency: the
// cache append happens strictly after commit, and fan-out targets are
// computed fresh from live state at delivery time.
func (h *Hub) handleSend(ctx context.Context, c *Conn, ev SendMessageEvent) error {
	identity, ok := h.boundIdentity(c)
	if !ok {
		return ErrUnauthenticated
	}

	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return &ValidationError{Reason: "message content must not be empty"}
	}
	if (ev.RoomID == nil) == (ev.ReceiverID == nil) {
		return &ValidationError{Reason: "exactly one of room_id and receiver_id must be set"}
	}

	if ev.RoomID != nil {
		isMember, err := h.members.IsMember(ctx, *ev.RoomID, identity.UserID)
		if err != nil {
			return &PersistenceError{Err: err}
		}
		if !isMember {
			return &ValidationError{Reason: "not a room member"}
		}
	}

	msg, err := h.messages.Create(ctx, identity.UserID, ev.RoomID, ev.ReceiverID, content, models.MessageTypeText)
	if err != nil {
		return &PersistenceError{Err: err}
	}

	// The cache is an acceleration layer: an append failure degrades the
	// next history read to a store query, nothing more.
	if err := h.recent.Append(ctx, cache.ConversationKey(msg), msg); err != nil {
		h.logger.Warn("recent cache append failed",
			zap.Int64("message_id", msg.ID), zap.Error(err))
	}

	frame := newMessageFrame(msg)
	if ev.RoomID != nil {
		h.deliverToRoom(*ev.RoomID, frame)
	} else {
		h.deliverDirect(ctx, identity.UserID, *ev.ReceiverID, frame)
	}
	return nil
}

// deliverToRoom pushes to every connection currently joined to the room.
// Targets are snapshotted under the lock; delivery happens outside it so a
// slow connection cannot stall the hub.
func (h *Hub) deliverToRoom(roomID uuid.UUID, frame []byte) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if !conn.deliver(frame) {
			h.logger.Debug("dropping frame for saturated connection",
				zap.String("conn_id", conn.id))
		}
	}
}

// deliverDirect resolves the sender's and receiver's current connections
// through the presence table and pushes to both, so the sender sees its
// own message. An offline party is silently skipped: no error, no retry,
// no queue.
func (h *Hub) deliverDirect(ctx context.Context, senderID, receiverID uuid.UUID, frame []byte) {
	targets := make(map[string]struct{}, 2)
	for _, userID := range []uuid.UUID{senderID, receiverID} {
		connID, online, err := h.presence.Lookup(ctx, userID)
		if err != nil {
			h.logger.Warn("presence lookup failed",
				zap.String("user_id", userID.String()), zap.Error(err))
			continue
		}
		if online {
			targets[connID] = struct{}{}
		}
	}

	h.mu.Lock()
	conns := make([]*Conn, 0, len(targets))
	for connID := range targets {
		if conn, ok := h.conns[connID]; ok {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if !conn.deliver(frame) {
			h.logger.Debug("dropping frame for saturated connection",
				zap.String("conn_id", conn.id))
		}
	}
}

// broadcast pushes a frame to every live connection. Best-effort.
func (h *Hub) broadcast(frame []byte) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		conn.deliver(frame)
	}
}

// touchPresence refreshes the presence TTL for the connection's user.
// Driven by pong frames, so an entry only expires after real network loss.
func (h *Hub) touchPresence(c *Conn) {
	identity, ok := h.boundIdentity(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := h.presence.Touch(ctx, identity.UserID); err != nil {
		h.logger.Warn("presence touch failed",
			zap.String("user_id", identity.UserID.String()), zap.Error(err))
	}
}

// removeFromRoomLocked drops c from a room's live set, pruning the set
// when it empties. Caller holds h.mu.
func (h *Hub) removeFromRoomLocked(roomID uuid.UUID, c *Conn) {
	set := h.rooms[roomID]
	if set == nil {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) boundIdentity(c *Conn) (auth.Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.state != stateAuthenticated {
		return auth.Identity{}, false
	}
	return c.identity, true
}
