package chat

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/johnyUofL/coursechat/db"
	"github.com/johnyUofL/coursechat/platformapi"
)

// ArchiveSink persists every displayed message into the transcript table.
// Inserts are idempotent per (room, message), so replays of history on
// session open do not duplicate rows. Insert failures are logged and
// dropped; archival must never block or fail delivery.
type ArchiveSink struct {
	DB *sql.DB
	// Timeout bounds each insert. Zero means 5s.
	Timeout time.Duration
}

func (a *ArchiveSink) timeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return 5 * time.Second
}

func (a *ArchiveSink) RenderSession(SessionInfo) {}
func (a *ArchiveSink) RemoveSession(int)         {}

func (a *ArchiveSink) AppendMessage(roomID int, msg platformapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout())
	defer cancel()
	err := db.InsertTranscript(ctx, a.DB, db.TranscriptMessage{
		RoomID:         roomID,
		MessageID:      msg.ID,
		SenderID:       msg.User.ID,
		SenderUsername: msg.User.Username,
		Body:           msg.Content,
		SentAt:         msg.SentAt,
	})
	if err != nil {
		slog.Warn("archive chat message",
			slog.Int("room_id", roomID),
			slog.Int("message_id", msg.ID),
			slog.Any("err", err))
	}
}
