package platformapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/testutil"
)

var (
	tutor   = platformapi.User{ID: 1, Username: "tutor", FirstName: "Tessa", LastName: "Ng"}
	student = platformapi.User{ID: 2, Username: "student"}
)

func newClient(t *testing.T) (*testutil.FakePlatform, *platformapi.Client) {
	t.Helper()
	f := testutil.NewFakePlatform(t)
	f.AddUser(tutor)
	f.AddUser(student)
	return f, f.Client()
}

func TestGetUser(t *testing.T) {
	_, c := newClient(t)
	u, err := c.GetUser(context.Background(), tutor.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Username != "tutor" {
		t.Errorf("username = %q", u.Username)
	}

	_, err = c.GetUser(context.Background(), 999)
	var apiErr *platformapi.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Detail == "" {
		t.Error("missing error detail")
	}
}

func TestFindUser(t *testing.T) {
	_, c := newClient(t)
	u, err := c.FindUser(context.Background(), "student")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.ID != student.ID {
		t.Errorf("id = %d", u.ID)
	}
	if _, err := c.FindUser(context.Background(), "ghost"); err == nil {
		t.Error("unknown username resolved")
	}
}

func TestCreateRoomAndParticipants(t *testing.T) {
	_, c := newClient(t)
	ctx := context.Background()

	room, err := c.CreateRoom(ctx, "Private Chat: tutor-student", true)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if !room.IsPrivate || room.ID == 0 {
		t.Errorf("room = %+v", room)
	}
	for _, uid := range []int{tutor.ID, student.ID} {
		if _, err := c.CreateParticipant(ctx, room.ID, uid); err != nil {
			t.Fatalf("create participant %d: %v", uid, err)
		}
	}
	parts, err := c.ListParticipants(ctx, room.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d participants, want 2", len(parts))
	}
}

func TestCreateMessageRejectsEmptyContent(t *testing.T) {
	f, c := newClient(t)
	room := f.AddRoom("Private Chat: tutor-student", true, tutor.ID, student.ID)

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := c.CreateMessage(context.Background(), room.ID, content); !errors.Is(err, platformapi.ErrEmptyContent) {
			t.Errorf("content %q: err = %v, want ErrEmptyContent", content, err)
		}
	}
	if n := len(f.Messages()); n != 0 {
		t.Errorf("store holds %d messages after rejected sends", n)
	}
}

func TestListMessagesAscendingAndFiltered(t *testing.T) {
	f, c := newClient(t)
	room := f.AddRoom("Private Chat: tutor-student", true, tutor.ID, student.ID)
	other := f.AddRoom("Private Chat: tutor-ghost", true, tutor.ID)
	f.AddMessage(room.ID, tutor.ID, "first")
	f.AddMessage(other.ID, tutor.ID, "noise")
	f.AddMessage(room.ID, student.ID, "second")

	msgs, err := c.ListMessages(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Errorf("order = %q, %q", msgs[0].Content, msgs[1].Content)
	}
	for _, m := range msgs {
		if m.Room.ID != room.ID {
			t.Errorf("cross-room message leaked: %+v", m)
		}
	}
}

func TestMarkRead(t *testing.T) {
	f, c := newClient(t)
	room := f.AddRoom("Private Chat: tutor-student", true, tutor.ID, student.ID)
	msg := f.AddMessage(room.ID, student.ID, "read me")

	if err := c.MarkRead(context.Background(), room.ID, tutor.ID, msg.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if got := f.LastRead(room.ID, tutor.ID); got != msg.ID {
		t.Errorf("last read = %d, want %d", got, msg.ID)
	}

	if err := c.MarkRead(context.Background(), room.ID, 999, msg.ID); err == nil {
		t.Error("mark read for non-participant succeeded")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		user platformapi.User
		want string
	}{
		{platformapi.User{Username: "x", FirstName: "Ada", LastName: "L"}, "Ada L"},
		{platformapi.User{Username: "x", FirstName: "Ada"}, "Ada"},
		{platformapi.User{Username: "x"}, "x"},
	}
	for _, tt := range tests {
		if got := tt.user.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.user, got, tt.want)
		}
	}
}
