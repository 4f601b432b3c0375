package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"
)

// setupTestDB opens a connection from TEST_PG_DSN and applies the embedded
// schema. Skips when no test database is available.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_, _ = database.Exec("DELETE FROM chat_transcripts")
		database.Close()
	})
	return database
}

func TestInsertTranscriptIdempotent(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	m := TranscriptMessage{
		RoomID:         7,
		MessageID:      101,
		SenderID:       3,
		SenderUsername: "teacher1",
		Body:           "hello",
		SentAt:         time.Now().UTC(),
	}
	if err := InsertTranscript(ctx, database, m); err != nil {
		t.Fatalf("InsertTranscript: %v", err)
	}
	// second delivery of the same message must be a no-op
	if err := InsertTranscript(ctx, database, m); err != nil {
		t.Fatalf("InsertTranscript (dup): %v", err)
	}

	n, err := CountTranscripts(ctx, database, 7)
	if err != nil {
		t.Fatalf("CountTranscripts: %v", err)
	}
	if n != 1 {
		t.Errorf("transcript count = %d, want 1", n)
	}
}

func TestQueryTranscriptCursorAndOrder(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []int{5, 3, 9} {
		m := TranscriptMessage{RoomID: 8, MessageID: id, SenderID: 1, SenderUsername: "u", Body: "m", SentAt: time.Now().UTC()}
		if err := InsertTranscript(ctx, database, m); err != nil {
			t.Fatalf("InsertTranscript: %v", err)
		}
	}
	// message to another room must not cross-deliver
	other := TranscriptMessage{RoomID: 9, MessageID: 4, SenderID: 1, SenderUsername: "u", Body: "m", SentAt: time.Now().UTC()}
	if err := InsertTranscript(ctx, database, other); err != nil {
		t.Fatalf("InsertTranscript: %v", err)
	}

	got, err := QueryTranscript(ctx, database, 8, 3, 100)
	if err != nil {
		t.Fatalf("QueryTranscript: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].MessageID != 5 || got[1].MessageID != 9 {
		t.Errorf("rows out of order: %d, %d", got[0].MessageID, got[1].MessageID)
	}
}
