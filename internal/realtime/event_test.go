package realtime

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeInboundVariants(t *testing.T) {
	roomID := uuid.New()
	receiverID := uuid.New()

	tests := []struct {
		name  string
		frame string
		want  any
	}{
		{
			name:  "connect",
			frame: `{"type":"connect","token":"abc"}`,
			want:  ConnectEvent{Token: "abc"},
		},
		{
			name:  "disconnect",
			frame: `{"type":"disconnect"}`,
			want:  DisconnectEvent{},
		},
		{
			name:  "join_room",
			frame: `{"type":"join_room","room_id":"` + roomID.String() + `"}`,
			want:  JoinRoomEvent{RoomID: roomID},
		},
		{
			name:  "leave_room",
			frame: `{"type":"leave_room","room_id":"` + roomID.String() + `"}`,
			want:  LeaveRoomEvent{RoomID: roomID},
		},
		{
			name:  "send_message direct",
			frame: `{"type":"send_message","content":"hi","receiver_id":"` + receiverID.String() + `"}`,
			want:  SendMessageEvent{Content: "hi", ReceiverID: &receiverID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			if err != nil {
				t.Fatalf("DecodeInbound() error = %v", err)
			}
			switch want := tt.want.(type) {
			case SendMessageEvent:
				ev, ok := got.(SendMessageEvent)
				if !ok {
					t.Fatalf("decoded %T, want SendMessageEvent", got)
				}
				if ev.Content != want.Content || ev.RoomID != nil ||
					ev.ReceiverID == nil || *ev.ReceiverID != *want.ReceiverID {
					t.Fatalf("decoded %+v, want %+v", ev, want)
				}
			default:
				if got != tt.want {
					t.Fatalf("decoded %+v, want %+v", got, tt.want)
				}
			}
		})
	}
}

func TestDecodeInboundRejectsGarbage(t *testing.T) {
	frames := []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"join_room","room_id":"nope"}`,
		`{"type":"send_message","content":123}`,
	}
	for _, frame := range frames {
		_, err := DecodeInbound([]byte(frame))
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("DecodeInbound(%q) error = %v, want ValidationError", frame, err)
		}
	}
}
