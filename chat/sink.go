package chat

import (
	"log/slog"

	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/telemetry"
)

// DisplaySink is the surface the manager and pollers push rendered state into.
// Implementations must tolerate being called for rooms they no longer track;
// failures are theirs to absorb.
type DisplaySink interface {
	// RenderSession announces a session's current state (open, minimized).
	// Called on open, reactivation, and state toggles.
	RenderSession(info SessionInfo)
	// AppendMessage delivers one message for display, in ascending ID order
	// within the room.
	AppendMessage(roomID int, msg platformapi.Message)
	// RemoveSession tears the session's display down after close.
	RemoveSession(roomID int)
}

// NotificationSink is invoked for every delivered counterpart message.
// Failures are swallowed by callers.
type NotificationSink interface {
	Notify(roomID int, msg platformapi.Message)
}

// MultiDisplay fans out to several display sinks in order.
type MultiDisplay []DisplaySink

func (m MultiDisplay) RenderSession(info SessionInfo) {
	for _, d := range m {
		d.RenderSession(info)
	}
}

func (m MultiDisplay) AppendMessage(roomID int, msg platformapi.Message) {
	for _, d := range m {
		d.AppendMessage(roomID, msg)
	}
}

func (m MultiDisplay) RemoveSession(roomID int) {
	for _, d := range m {
		d.RemoveSession(roomID)
	}
}

// LogDisplay renders sessions and messages into the structured log. It is the
// default display surface for the headless agent.
type LogDisplay struct {
	Log *slog.Logger
}

func (d *LogDisplay) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d *LogDisplay) RenderSession(info SessionInfo) {
	d.logger().Info("chat session",
		slog.Int("room_id", info.RoomID),
		slog.String("with", info.Counterpart.Username),
		slog.String("state", string(info.State)))
}

func (d *LogDisplay) AppendMessage(roomID int, msg platformapi.Message) {
	d.logger().Info("chat message",
		slog.Int("room_id", roomID),
		slog.Int("message_id", msg.ID),
		slog.String("from", msg.User.Username),
		slog.String("content", msg.Content))
}

func (d *LogDisplay) RemoveSession(roomID int) {
	d.logger().Info("chat session closed", slog.Int("room_id", roomID))
}

// LogNotifier is the headless notification sink: a log line plus a metric tick
// where a browser would play a sound.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(roomID int, msg platformapi.Message) {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("incoming chat message",
		slog.Int("room_id", roomID),
		slog.String("from", msg.User.Username))
	if telemetry.NotificationsSent != nil {
		telemetry.NotificationsSent.Inc()
	}
}
