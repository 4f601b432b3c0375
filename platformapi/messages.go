package platformapi

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrEmptyContent rejects message sends with no text before any network call.
var ErrEmptyContent = errors.New("message content is empty")

// ListMessages fetches all messages currently stored for the room, in ascending
// ID order. The store endpoint is not cursor-parameterized; incremental polling
// filters on the caller side. Rows for other rooms are dropped defensively, the
// room query parameter has been observed to leak across rooms.
func (c *Client) ListMessages(ctx context.Context, roomID int) ([]Message, error) {
	q := url.Values{}
	q.Set("room", strconv.Itoa(roomID))
	var msgs []Message
	if err := c.do(ctx, "GET", "/api/addon/messages/", q, nil, &msgs); err != nil {
		return nil, err
	}
	out := msgs[:0]
	for _, m := range msgs {
		if m.Room.ID == roomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateMessage appends a message to the room and returns the persisted record,
// including its server-assigned ID.
func (c *Client) CreateMessage(ctx context.Context, roomID int, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}
	payload := map[string]any{
		"room_id": roomID,
		"content": content,
	}
	var msg Message
	if err := c.do(ctx, "POST", "/api/addon/messages/", nil, payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
