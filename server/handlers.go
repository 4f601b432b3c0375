package server

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/johnyUofL/coursechat/chat"
	"github.com/johnyUofL/coursechat/platformapi"
)

// Handlers holds dependencies for all HTTP handlers. db may be nil when the
// agent runs without a transcript archive.
type Handlers struct {
	db  *sql.DB
	mgr *chat.Manager
	api *platformapi.Client
	hub *Hub
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		db:  deps.DB,
		mgr: deps.Manager,
		api: deps.API,
		hub: deps.Hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
