package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/johnyUofL/coursechat/chat"
	"github.com/johnyUofL/coursechat/platformapi"
)

// subscriberBuffer bounds how far a slow SSE consumer may lag before events
// are dropped for it.
const subscriberBuffer = 64

// Hub is the live display surface: a chat.DisplaySink that fans appended
// messages out to SSE subscribers per room. Session close detaches every
// subscriber for that room.
type Hub struct {
	mu   sync.Mutex
	subs map[int]map[chan platformapi.Message]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]map[chan platformapi.Message]struct{})}
}

func (h *Hub) RenderSession(chat.SessionInfo) {}

func (h *Hub) AppendMessage(roomID int, msg platformapi.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[roomID] {
		select {
		case ch <- msg:
		default:
			// Slow consumer; drop rather than stall delivery.
		}
	}
}

func (h *Hub) RemoveSession(roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[roomID] {
		close(ch)
	}
	delete(h.subs, roomID)
}

// Subscribe registers a listener for the room. The returned cancel func is
// idempotent against the hub having already closed the channel.
func (h *Hub) Subscribe(roomID int) (<-chan platformapi.Message, func()) {
	ch := make(chan platformapi.Message, subscriberBuffer)
	h.mu.Lock()
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[chan platformapi.Message]struct{})
	}
	h.subs[roomID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[roomID]; ok {
			if _, live := set[ch]; live {
				delete(set, ch)
				close(ch)
			}
		}
	}
	return ch, cancel
}

// handleSessionEvents streams the room's appended messages as Server-Sent
// Events until the client disconnects or the session closes.
func (h *Handlers) handleSessionEvents(w http.ResponseWriter, r *http.Request, roomID int) {
	if h.hub == nil {
		writeError(w, http.StatusNotFound, "live feed not enabled")
		return
	}
	if _, ok := h.mgr.Session(roomID); !ok {
		writeError(w, http.StatusNotFound, "no session for room")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := h.hub.Subscribe(roomID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ctx := r.Context()
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-ch:
			if !open {
				// Session closed underneath us.
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
				return
			}
			if err := enc.Encode(msg); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				slog.Warn("failed to write SSE newline", slog.Any("err", err))
				return
			}
			flusher.Flush()
		}
	}
}
