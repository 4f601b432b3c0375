package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/johnyUofL/coursechat/chat"
	"github.com/johnyUofL/coursechat/platformapi"
)

// HandleSessions serves the session collection: list and open.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.mgr.Sessions())
	case http.MethodPost:
		var in struct {
			UserID   int    `json:"user_id"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		var (
			info chat.SessionInfo
			err  error
		)
		switch {
		case in.UserID != 0:
			var other platformapi.User
			other, err = h.api.GetUser(r.Context(), in.UserID)
			if err == nil {
				info, err = h.mgr.OpenChat(r.Context(), other)
			}
		case in.Username != "":
			info, err = h.mgr.OpenChatWithUsername(r.Context(), in.Username)
		default:
			writeError(w, http.StatusBadRequest, "user_id or username required")
			return
		}
		if err != nil {
			writeError(w, openStatus(err), "failed to start chat: "+err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, info)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleSessionDispatch routes /sessions/{room} and its subresources.
func (h *Handlers) HandleSessionDispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	parts := strings.SplitN(rest, "/", 2)
	roomID, err := strconv.Atoi(parts[0])
	if err != nil || roomID <= 0 {
		writeError(w, http.StatusNotFound, "invalid room id")
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		info, ok := h.mgr.Session(roomID)
		if !ok {
			writeError(w, http.StatusNotFound, "no session for room")
			return
		}
		writeJSON(w, http.StatusOK, info)
	case sub == "" && r.Method == http.MethodDelete:
		if err := h.mgr.Close(roomID); err != nil {
			writeError(w, sessionStatus(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case sub == "messages" && r.Method == http.MethodPost:
		h.handleSendMessage(w, r, roomID)
	case sub == "minimize" && r.Method == http.MethodPost:
		h.handleSetState(w, roomID, h.mgr.Minimize)
	case sub == "restore" && r.Method == http.MethodPost:
		h.handleSetState(w, roomID, h.mgr.Restore)
	case sub == "events" && r.Method == http.MethodGet:
		h.handleSessionEvents(w, r, roomID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handlers) handleSendMessage(w http.ResponseWriter, r *http.Request, roomID int) {
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	msg, err := h.mgr.SendMessage(r.Context(), roomID, in.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoSession):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, platformapi.ErrEmptyContent):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) handleSetState(w http.ResponseWriter, roomID int, fn func(int) (chat.SessionInfo, error)) {
	info, err := fn(roomID)
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func sessionStatus(err error) int {
	if errors.Is(err, chat.ErrNoSession) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// openStatus maps an OpenChat failure to a response code. Platform store
// errors surface as bad gateway, everything else as a client error.
func openStatus(err error) int {
	var apiErr *platformapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}
