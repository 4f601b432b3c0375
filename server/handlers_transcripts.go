package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/johnyUofL/coursechat/db"
)

// HandleTranscript replays a room's archived messages as JSON.
// Params: after (message id cursor, default 0), limit (default 1000).
func (h *Handlers) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.db == nil {
		writeError(w, http.StatusNotFound, "transcript archive not enabled")
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/transcripts/"), "/")
	roomID, err := strconv.Atoi(rest)
	if err != nil || roomID <= 0 {
		writeError(w, http.StatusNotFound, "invalid room id")
		return
	}
	after := parseIntQuery(r, "after", 0)
	limit := parseIntQuery(r, "limit", 1000)

	msgs, err := db.QueryTranscript(r.Context(), h.db, roomID, after, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
