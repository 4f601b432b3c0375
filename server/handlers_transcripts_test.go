package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/johnyUofL/coursechat/db"
	"github.com/johnyUofL/coursechat/testutil"
)

func TestTranscriptEndpoint(t *testing.T) {
	database := testutil.SetupTestDB(t)
	f := testutil.NewFakePlatform(t)
	f.AddUser(testSelf)

	srv := httptest.NewServer(NewMux(Deps{DB: database, API: f.Client()}))
	t.Cleanup(srv.Close)

	const roomID = 12
	for i := 1; i <= 3; i++ {
		err := db.InsertTranscript(context.Background(), database, db.TranscriptMessage{
			RoomID:         roomID,
			MessageID:      i,
			SenderID:       testSelf.ID,
			SenderUsername: testSelf.Username,
			Body:           fmt.Sprintf("line %d", i),
			SentAt:         time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("insert transcript %d: %v", i, err)
		}
	}

	resp, err := http.Get(srv.URL + fmt.Sprintf("/transcripts/%d?after=1", roomID))
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	msgs := decode[[]db.TranscriptMessage](t, resp)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages after cursor, want 2", len(msgs))
	}
	if msgs[0].MessageID != 2 || msgs[1].MessageID != 3 {
		t.Errorf("cursor/order wrong: %d, %d", msgs[0].MessageID, msgs[1].MessageID)
	}
}
