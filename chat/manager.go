package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/telemetry"
)

// ErrNoSession is returned by operations that target a room with no open
// session.
var ErrNoSession = fmt.Errorf("no open session for room")

// Manager owns the set of open chat sessions, at most one per room. It
// resolves rooms through the Directory, runs one Poller per session, and
// pushes all rendered state into the configured sinks. Pollers inherit the
// manager's base context, so shutting that context down stops every loop.
type Manager struct {
	api       *platformapi.Client
	directory *Directory
	self      platformapi.User
	interval  time.Duration
	display   DisplaySink
	notifier  NotificationSink

	baseCtx context.Context

	mu       sync.Mutex
	sessions map[int]*session
}

// NewManager wires a session manager for the given self user. baseCtx bounds
// the lifetime of every poller the manager starts.
func NewManager(baseCtx context.Context, api *platformapi.Client, self platformapi.User, interval time.Duration, display DisplaySink, notifier NotificationSink) *Manager {
	if display == nil {
		display = MultiDisplay(nil)
	}
	return &Manager{
		api:       api,
		directory: NewDirectory(api),
		self:      self,
		interval:  interval,
		display:   display,
		notifier:  notifier,
		baseCtx:   baseCtx,
		sessions:  make(map[int]*session),
	}
}

// Self returns the user the manager is acting as.
func (m *Manager) Self() platformapi.User { return m.self }

// OpenChat opens a session with the given user. An existing session for the
// pair's room is reactivated in place (state forced to open, same instance
// ID); otherwise the room is resolved or created, its history loaded, and a
// fresh poller started. History load failure fails the open.
func (m *Manager) OpenChat(ctx context.Context, other platformapi.User) (SessionInfo, error) {
	if other.ID == m.self.ID {
		return SessionInfo{}, fmt.Errorf("cannot open chat with self")
	}
	room, err := m.directory.ResolveOrCreate(ctx, m.self, other)
	if err != nil {
		return SessionInfo{}, err
	}

	m.mu.Lock()
	if s, ok := m.sessions[room.ID]; ok {
		s.info.State = StateOpen
		info := s.info
		m.mu.Unlock()
		m.display.RenderSession(info)
		return info, nil
	}
	m.mu.Unlock()

	p := NewPoller(m.api, room, m.self, m.interval, m.display, m.notifier)
	s := newSession(room, other, p)
	m.display.RenderSession(s.info)
	if err := p.Start(m.baseCtx); err != nil {
		m.display.RemoveSession(room.ID)
		return SessionInfo{}, err
	}

	m.mu.Lock()
	if prev, ok := m.sessions[room.ID]; ok {
		// Lost a race to a concurrent open for the same room. Keep the first
		// session; its display stays up, so only the extra poller is stopped.
		m.mu.Unlock()
		p.Stop()
		return prev.info, nil
	}
	m.sessions[room.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	telemetry.SetOpenSessions(n)
	slog.Info("chat session opened",
		slog.Int("room_id", room.ID),
		slog.String("with", other.Username))
	return s.info, nil
}

// OpenChatWithUsername looks the user up by username, then opens the chat.
func (m *Manager) OpenChatWithUsername(ctx context.Context, username string) (SessionInfo, error) {
	other, err := m.api.FindUser(ctx, username)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("find user %q: %w", username, err)
	}
	return m.OpenChat(ctx, other)
}

// SendMessage posts content to the room's session and renders the stored
// message immediately, without waiting for the next poll. The poller's cursor
// is advanced past the new message so delivery never echoes it back.
func (m *Manager) SendMessage(ctx context.Context, roomID int, content string) (platformapi.Message, error) {
	m.mu.Lock()
	s, ok := m.sessions[roomID]
	m.mu.Unlock()
	if !ok {
		return platformapi.Message{}, fmt.Errorf("%w %d", ErrNoSession, roomID)
	}

	start := time.Now()
	msg, err := m.api.CreateMessage(ctx, roomID, content)
	if err != nil {
		if telemetry.SendsFailed != nil {
			telemetry.SendsFailed.Inc()
		}
		return platformapi.Message{}, fmt.Errorf("send to room %d: %w", roomID, err)
	}
	s.poller.Bump(msg.ID)
	m.display.AppendMessage(roomID, msg)
	if telemetry.MessagesSent != nil {
		telemetry.MessagesSent.Inc()
	}
	if telemetry.SendDuration != nil {
		telemetry.SendDuration.Observe(time.Since(start).Seconds())
	}
	return msg, nil
}

// Minimize marks the session minimized. The poller keeps running; a
// minimized session still receives messages and notifications.
func (m *Manager) Minimize(roomID int) (SessionInfo, error) {
	return m.setState(roomID, StateMinimized)
}

// Restore marks a minimized session open again.
func (m *Manager) Restore(roomID int) (SessionInfo, error) {
	return m.setState(roomID, StateOpen)
}

func (m *Manager) setState(roomID int, state SessionState) (SessionInfo, error) {
	m.mu.Lock()
	s, ok := m.sessions[roomID]
	if !ok {
		m.mu.Unlock()
		return SessionInfo{}, fmt.Errorf("%w %d", ErrNoSession, roomID)
	}
	s.info.State = state
	info := s.info
	m.mu.Unlock()
	m.display.RenderSession(info)
	return info, nil
}

// Close stops the room's poller, waits for it to exit, and removes the
// session. Closing an unknown room returns ErrNoSession.
func (m *Manager) Close(roomID int) error {
	m.mu.Lock()
	s, ok := m.sessions[roomID]
	if ok {
		delete(m.sessions, roomID)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %d", ErrNoSession, roomID)
	}
	s.poller.Stop()
	m.display.RemoveSession(roomID)
	telemetry.SetOpenSessions(n)
	slog.Info("chat session closed", slog.Int("room_id", roomID))
	return nil
}

// CloseAll tears every session down. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[int]*session)
	m.mu.Unlock()
	for _, s := range all {
		s.poller.Stop()
		m.display.RemoveSession(s.info.RoomID)
	}
	telemetry.SetOpenSessions(0)
}

// Session returns the session snapshot for one room.
func (m *Manager) Session(roomID int) (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[roomID]
	if !ok {
		return SessionInfo{}, false
	}
	return s.info, true
}

// Sessions returns a snapshot of all open sessions ordered by room ID.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
