package platformapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListRooms fetches all active chat rooms.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.do(ctx, "GET", "/api/addon/chat-rooms/", nil, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateRoom creates a chat room. Private one-to-one rooms carry is_private=true
// and no course association.
func (c *Client) CreateRoom(ctx context.Context, name string, private bool) (Room, error) {
	payload := map[string]any{
		"name":        name,
		"description": "",
		"course_id":   nil,
		"is_private":  private,
	}
	var room Room
	if err := c.do(ctx, "POST", "/api/addon/chat-rooms/", nil, payload, &room); err != nil {
		return Room{}, err
	}
	return room, nil
}

// ListParticipants fetches the participant records of a room.
func (c *Client) ListParticipants(ctx context.Context, roomID int) ([]Participant, error) {
	q := url.Values{}
	q.Set("room", strconv.Itoa(roomID))
	var parts []Participant
	if err := c.do(ctx, "GET", "/api/addon/participants/", q, nil, &parts); err != nil {
		return nil, err
	}
	// The store has been observed to ignore the room filter; keep only rows
	// that actually belong to the requested room.
	out := parts[:0]
	for _, p := range parts {
		if p.Room.ID == roomID || p.Room.ID == 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// CreateParticipant adds a user to a room.
func (c *Client) CreateParticipant(ctx context.Context, roomID, userID int) (Participant, error) {
	payload := map[string]any{
		"room_id": roomID,
		"user_id": userID,
	}
	var p Participant
	if err := c.do(ctx, "POST", "/api/addon/participants/", nil, payload, &p); err != nil {
		return Participant{}, err
	}
	return p, nil
}

// MarkRead records messageID as the reader's last read message in the room.
// It PATCHes the reader's participant record; callers treat failure as
// non-fatal and must not let it block message display.
func (c *Client) MarkRead(ctx context.Context, roomID, readerID, messageID int) error {
	parts, err := c.ListParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if p.User.ID == readerID {
			payload := map[string]any{"last_read_message": messageID}
			return c.do(ctx, "PATCH", fmt.Sprintf("/api/addon/participants/%d/", p.ID), nil, payload, nil)
		}
	}
	return fmt.Errorf("no participant record for user %d in room %d", readerID, roomID)
}
