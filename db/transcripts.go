package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/johnyUofL/coursechat/crypto"
)

// TranscriptMessage is one archived chat message. Body is plaintext on the way
// in and out; encryption at rest is handled internally when configured.
type TranscriptMessage struct {
	RoomID         int       `json:"room_id"`
	MessageID      int       `json:"message_id"`
	SenderID       int       `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// InsertTranscript archives one delivered message. Idempotent per
// (room_id, message_id): re-delivery after a restart is a no-op, so the history
// fetch on session open can be replayed into the archive safely.
func InsertTranscript(ctx context.Context, dbx *sql.DB, m TranscriptMessage) error {
	enc, err := getEncryptor()
	if err != nil {
		return fmt.Errorf("get encryptor: %w", err)
	}

	encVersion := 0
	body := m.Body
	if enc != nil {
		stored, err := crypto.EncryptString(enc, m.Body)
		if err != nil {
			return fmt.Errorf("encrypt transcript body: %w", err)
		}
		body = stored
		encVersion = 1
	}

	_, err = dbx.ExecContext(ctx, `
		INSERT INTO chat_transcripts (room_id, message_id, sender_id, sender_username, body, encryption_version, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (room_id, message_id) DO NOTHING`,
		m.RoomID, m.MessageID, m.SenderID, m.SenderUsername, body, encVersion, m.SentAt)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// QueryTranscript returns archived messages for a room with id > afterID,
// ascending, at most limit rows. Rows whose body cannot be decrypted are
// returned with an empty body rather than failing the whole query.
func QueryTranscript(ctx context.Context, dbx *sql.DB, roomID, afterID, limit int) ([]TranscriptMessage, error) {
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	rows, err := dbx.QueryContext(ctx, `
		SELECT message_id, sender_id, sender_username, body, encryption_version, sent_at
		FROM chat_transcripts
		WHERE room_id = $1 AND message_id > $2
		ORDER BY message_id ASC
		LIMIT $3`,
		roomID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()

	enc, err := getEncryptor()
	if err != nil {
		return nil, fmt.Errorf("get encryptor: %w", err)
	}

	out := make([]TranscriptMessage, 0)
	for rows.Next() {
		var m TranscriptMessage
		var encVersion int
		m.RoomID = roomID
		if err := rows.Scan(&m.MessageID, &m.SenderID, &m.SenderUsername, &m.Body, &encVersion, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		if encVersion == 1 {
			if enc == nil {
				slog.Warn("encrypted transcript row but no ENCRYPTION_KEY configured", slog.Int("room_id", roomID), slog.Int("message_id", m.MessageID))
				m.Body = ""
			} else if plain, err := crypto.DecryptString(enc, m.Body); err != nil {
				slog.Warn("failed to decrypt transcript body", slog.Int("room_id", roomID), slog.Int("message_id", m.MessageID), slog.Any("err", err))
				m.Body = ""
			} else {
				m.Body = plain
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountTranscripts returns the number of archived messages for a room.
func CountTranscripts(ctx context.Context, dbx *sql.DB, roomID int) (int, error) {
	var n int
	err := dbx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_transcripts WHERE room_id = $1`, roomID).Scan(&n)
	return n, err
}
