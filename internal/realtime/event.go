package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/models"
)

// Inbound event names. These are the wire contract clients speak over the
// WebSocket; each name maps to exactly one payload schema below.
const (
	EventConnect     = "connect"
	EventDisconnect  = "disconnect"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
)

// Outbound event names.
const (
	EventUserOnline  = "user_online"
	EventUserOffline = "user_offline"
	EventJoinedRoom  = "joined_room"
	EventLeftRoom    = "left_room"
	EventNewMessage  = "new_message"
	EventError       = "error"
)

// Inbound is the tagged union of client events. Exactly one variant per
// event name; a frame that doesn't match its variant's schema is rejected
// as a validation error before it reaches the router.
type Inbound interface {
	inboundEvent()
}

type ConnectEvent struct {
	Token string `json:"token"`
}

type DisconnectEvent struct{}

type JoinRoomEvent struct {
	RoomID uuid.UUID `json:"room_id"`
}

type LeaveRoomEvent struct {
	RoomID uuid.UUID `json:"room_id"`
}

type SendMessageEvent struct {
	Content    string     `json:"content"`
	RoomID     *uuid.UUID `json:"room_id,omitempty"`
	ReceiverID *uuid.UUID `json:"receiver_id,omitempty"`
}

func (ConnectEvent) inboundEvent()     {}
func (DisconnectEvent) inboundEvent()  {}
func (JoinRoomEvent) inboundEvent()    {}
func (LeaveRoomEvent) inboundEvent()   {}
func (SendMessageEvent) inboundEvent() {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses a wire frame into its event variant. Unknown types
// and malformed payloads come back as a *ValidationError so the caller can
// report them without tearing the connection down.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ValidationError{Reason: "malformed event frame"}
	}

	var (
		ev  Inbound
		err error
	)
	switch env.Type {
	case EventConnect:
		var e ConnectEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventDisconnect:
		ev = DisconnectEvent{}
	case EventJoinRoom:
		var e JoinRoomEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventLeaveRoom:
		var e LeaveRoomEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventSendMessage:
		var e SendMessageEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown event type %q", env.Type)}
	}
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed %s payload", env.Type)}
	}
	return ev, nil
}

// outbound is the generic push frame. Only the fields relevant to the
// event type are populated; omitempty keeps the wire shape per-variant.
type outbound struct {
	Type      string          `json:"type"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Username  string          `json:"username,omitempty"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	Message   *models.Message `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

func marshalOutbound(o outbound) []byte {
	// The outbound structs contain no types that can fail to marshal.
	b, _ := json.Marshal(o)
	return b
}

func userOnlineFrame(userID uuid.UUID, username string) []byte {
	return marshalOutbound(outbound{Type: EventUserOnline, UserID: &userID, Username: username})
}

func userOfflineFrame(userID uuid.UUID) []byte {
	return marshalOutbound(outbound{Type: EventUserOffline, UserID: &userID})
}

func joinedRoomFrame(roomID uuid.UUID) []byte {
	return marshalOutbound(outbound{Type: EventJoinedRoom, RoomID: &roomID})
}

func leftRoomFrame(roomID uuid.UUID) []byte {
	return marshalOutbound(outbound{Type: EventLeftRoom, RoomID: &roomID})
}

func newMessageFrame(msg *models.Message) []byte {
	return marshalOutbound(outbound{
		Type:      EventNewMessage,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func errorFrame(reason string) []byte {
	type errFrame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	b, _ := json.Marshal(errFrame{Type: EventError, Message: reason})
	return b
}
