// Package testutil provides shared test helpers: an in-memory fake of the
// e-learning platform API and a Postgres fixture gated on TEST_PG_DSN.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/johnyUofL/coursechat/platformapi"
)

// FakePlatform is an in-memory stand-in for the platform REST API: token
// issuance, user lookup, and the chat store (rooms, participants, messages).
// All state is guarded by mu; handlers are safe for concurrent pollers.
type FakePlatform struct {
	*httptest.Server

	mu           sync.Mutex
	users        map[int]platformapi.User
	rooms        map[int]platformapi.Room
	participants map[int]fakeParticipant
	messages     []platformapi.Message

	nextRoomID        int
	nextParticipantID int
	nextMessageID     int

	// failMessages makes GET /api/addon/messages/ return 500 while > 0,
	// decrementing per request. Set via SetFailMessages.
	failMessages int
	// TokenRequests counts hits on the token endpoints.
	TokenRequests int
	// SenderID is the user attributed to messages posted over HTTP. The fake
	// has no per-request auth identity, so tests set it explicitly; zero
	// falls back to the lowest registered user id.
	SenderID int
}

type fakeParticipant struct {
	ID              int
	RoomID          int
	UserID          int
	JoinedAt        time.Time
	LastReadMessage int
}

// NewFakePlatform starts the fake server; it is shut down via t.Cleanup.
func NewFakePlatform(t *testing.T) *FakePlatform {
	t.Helper()
	f := &FakePlatform{
		users:             make(map[int]platformapi.User),
		rooms:             make(map[int]platformapi.Room),
		participants:      make(map[int]fakeParticipant),
		nextRoomID:        1,
		nextParticipantID: 1,
		nextMessageID:     1,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/", f.handleToken)
	mux.HandleFunc("/api/token/refresh/", f.handleToken)
	mux.HandleFunc("/userauths/api/users/", f.handleUsers)
	mux.HandleFunc("/api/addon/chat-rooms/", f.handleRooms)
	mux.HandleFunc("/api/addon/participants/", f.handleParticipants)
	mux.HandleFunc("/api/addon/messages/", f.handleMessages)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// Client returns an API client pointed at the fake with working credentials.
func (f *FakePlatform) Client() *platformapi.Client {
	return &platformapi.Client{
		BaseURL: f.URL,
		TokenSource: &platformapi.TokenSource{
			BaseURL:  f.URL,
			Username: "tester",
			Password: "secret",
		},
	}
}

// AddUser registers a user record.
func (f *FakePlatform) AddUser(u platformapi.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

// AddRoom creates a room with the given members and returns it.
func (f *FakePlatform) AddRoom(name string, private bool, memberIDs ...int) platformapi.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := platformapi.Room{
		ID:        f.nextRoomID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
		IsPrivate: private,
	}
	f.nextRoomID++
	f.rooms[room.ID] = room
	for _, uid := range memberIDs {
		f.addParticipantLocked(room.ID, uid)
	}
	return room
}

// AddMessage appends a message authored by userID to the room and returns it.
func (f *FakePlatform) AddMessage(roomID, userID int, content string) platformapi.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addMessageLocked(roomID, userID, content)
}

// Messages returns a copy of all stored messages.
func (f *FakePlatform) Messages() []platformapi.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platformapi.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Rooms returns a copy of all stored rooms.
func (f *FakePlatform) Rooms() []platformapi.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platformapi.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out
}

// SetFailMessages arms the message-list endpoint to fail the next n GETs
// with a 500. Used to exercise poll-cycle and history error handling.
func (f *FakePlatform) SetFailMessages(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMessages = n
}

// LastRead returns the stored last_read_message for a user in a room.
func (f *FakePlatform) LastRead(roomID, userID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants {
		if p.RoomID == roomID && p.UserID == userID {
			return p.LastReadMessage
		}
	}
	return 0
}

func (f *FakePlatform) addParticipantLocked(roomID, userID int) fakeParticipant {
	p := fakeParticipant{
		ID:       f.nextParticipantID,
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	f.nextParticipantID++
	f.participants[p.ID] = p
	return p
}

func (f *FakePlatform) addMessageLocked(roomID, userID int, content string) platformapi.Message {
	msg := platformapi.Message{
		ID:      f.nextMessageID,
		Room:    f.rooms[roomID],
		User:    f.users[userID],
		Content: content,
		SentAt:  time.Now().UTC(),
	}
	f.nextMessageID++
	f.messages = append(f.messages, msg)
	return msg
}

func (f *FakePlatform) participantView(p fakeParticipant) platformapi.Participant {
	return platformapi.Participant{
		ID:       p.ID,
		Room:     f.rooms[p.RoomID],
		User:     f.users[p.UserID],
		JoinedAt: p.JoinedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test fake response
}

func (f *FakePlatform) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.TokenRequests++
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  "test-access-token",
		"refresh": "test-refresh-token",
	})
}

func (f *FakePlatform) handleUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/userauths/api/users/"), "/")
	if rest == "" {
		out := make([]platformapi.User, 0, len(f.users))
		for _, u := range f.users {
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	u, ok := f.users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (f *FakePlatform) handleRooms(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		out := make([]platformapi.Room, 0, len(f.rooms))
		for _, room := range f.rooms {
			out = append(out, room)
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var in struct {
			Name      string `json:"name"`
			IsPrivate bool   `json:"is_private"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad payload"})
			return
		}
		room := platformapi.Room{
			ID:        f.nextRoomID,
			Name:      in.Name,
			CreatedAt: time.Now().UTC(),
			IsActive:  true,
			IsPrivate: in.IsPrivate,
		}
		f.nextRoomID++
		f.rooms[room.ID] = room
		writeJSON(w, http.StatusCreated, room)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakePlatform) handleParticipants(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/addon/participants/"), "/")
	if rest != "" {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id, err := strconv.Atoi(rest)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
			return
		}
		p, ok := f.participants[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
			return
		}
		var in struct {
			LastReadMessage int `json:"last_read_message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad payload"})
			return
		}
		p.LastReadMessage = in.LastReadMessage
		f.participants[id] = p
		writeJSON(w, http.StatusOK, f.participantView(p))
		return
	}
	switch r.Method {
	case http.MethodGet:
		roomFilter := 0
		if v := r.URL.Query().Get("room"); v != "" {
			roomFilter, _ = strconv.Atoi(v)
		}
		out := make([]platformapi.Participant, 0)
		for _, p := range f.participants {
			if roomFilter != 0 && p.RoomID != roomFilter {
				continue
			}
			out = append(out, f.participantView(p))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var in struct {
			RoomID int `json:"room_id"`
			UserID int `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad payload"})
			return
		}
		if _, ok := f.rooms[in.RoomID]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unknown room"})
			return
		}
		p := f.addParticipantLocked(in.RoomID, in.UserID)
		writeJSON(w, http.StatusCreated, f.participantView(p))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakePlatform) handleMessages(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		if f.failMessages > 0 {
			f.failMessages--
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "store unavailable"})
			return
		}
		roomFilter := 0
		if v := r.URL.Query().Get("room"); v != "" {
			roomFilter, _ = strconv.Atoi(v)
		}
		out := make([]platformapi.Message, 0)
		for _, m := range f.messages {
			if roomFilter != 0 && m.Room.ID != roomFilter {
				continue
			}
			out = append(out, m)
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var in struct {
			RoomID  int    `json:"room_id"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad payload"})
			return
		}
		if _, ok := f.rooms[in.RoomID]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unknown room"})
			return
		}
		if strings.TrimSpace(in.Content) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "content required"})
			return
		}
		msg := f.addMessageLocked(in.RoomID, f.senderLocked(), in.Content)
		writeJSON(w, http.StatusCreated, msg)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakePlatform) senderLocked() int {
	if f.SenderID != 0 {
		return f.SenderID
	}
	low := 0
	for id := range f.users {
		if low == 0 || id < low {
			low = id
		}
	}
	return low
}
