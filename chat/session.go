package chat

import (
	"github.com/google/uuid"

	"github.com/johnyUofL/coursechat/platformapi"
)

// SessionState is the visibility state of an open session.
type SessionState string

const (
	StateOpen      SessionState = "open"
	StateMinimized SessionState = "minimized"
)

// SessionInfo is the immutable-ish snapshot a session exposes to sinks and to
// the HTTP surface.
type SessionInfo struct {
	// InstanceID distinguishes successive sessions for the same room. A
	// reactivated session keeps its instance ID; a close followed by a fresh
	// open mints a new one.
	InstanceID  string           `json:"instance_id"`
	RoomID      int              `json:"room_id"`
	RoomName    string           `json:"room_name"`
	Counterpart platformapi.User `json:"counterpart"`
	State       SessionState     `json:"state"`
}

// session is one live chat session: a room, its counterpart, its state, and
// the poller feeding it. Access is guarded by the manager's lock.
type session struct {
	info   SessionInfo
	room   platformapi.Room
	poller *Poller
}

func newSession(room platformapi.Room, counterpart platformapi.User, p *Poller) *session {
	return &session{
		info: SessionInfo{
			InstanceID:  uuid.NewString(),
			RoomID:      room.ID,
			RoomName:    room.Name,
			Counterpart: counterpart,
			State:       StateOpen,
		},
		room:   room,
		poller: p,
	}
}
