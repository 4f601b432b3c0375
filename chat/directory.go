package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/telemetry"
)

// Directory resolves a pair of users to their single private room, creating
// one only when none exists. The backing store offers no uniqueness guard on
// the pair, so resolution is a scan over private rooms' participant sets; a
// per-pair lock keeps one agent from racing itself into duplicate rooms.
// Concurrent creations from different clients can still produce duplicates;
// the scan then settles on the first match and the extra room goes unused.
type Directory struct {
	api *platformapi.Client

	mu        sync.Mutex
	pairLocks map[string]*sync.Mutex
}

func NewDirectory(api *platformapi.Client) *Directory {
	return &Directory{
		api:       api,
		pairLocks: make(map[string]*sync.Mutex),
	}
}

// pairKey returns the canonical key for an unordered user pair.
func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (d *Directory) lockPair(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.pairLocks[key]
	if !ok {
		l = &sync.Mutex{}
		d.pairLocks[key] = l
	}
	return l
}

// ResolveOrCreate returns the private room shared by self and other, creating
// the room and both participant records when no such room exists. Two
// sequential calls for the same pair return the same room.
func (d *Directory) ResolveOrCreate(ctx context.Context, self, other platformapi.User) (platformapi.Room, error) {
	start := time.Now()

	lock := d.lockPair(pairKey(self.ID, other.ID))
	lock.Lock()
	defer lock.Unlock()

	room, found, err := d.find(ctx, self.ID, other.ID)
	if err != nil {
		return platformapi.Room{}, fmt.Errorf("scan private rooms: %w", err)
	}
	if found {
		if telemetry.RoomsResolved != nil {
			telemetry.RoomsResolved.Inc()
		}
		observeResolve(start)
		return room, nil
	}

	name := fmt.Sprintf("Private Chat: %s-%s", self.Username, other.Username)
	room, err = d.api.CreateRoom(ctx, name, true)
	if err != nil {
		return platformapi.Room{}, fmt.Errorf("create private room: %w", err)
	}
	if _, err := d.api.CreateParticipant(ctx, room.ID, self.ID); err != nil {
		return platformapi.Room{}, fmt.Errorf("add self to room %d: %w", room.ID, err)
	}
	if _, err := d.api.CreateParticipant(ctx, room.ID, other.ID); err != nil {
		return platformapi.Room{}, fmt.Errorf("add user %d to room %d: %w", other.ID, room.ID, err)
	}
	if telemetry.RoomsCreated != nil {
		telemetry.RoomsCreated.Inc()
	}
	observeResolve(start)
	return room, nil
}

// find scans all private rooms for one whose participant set is exactly
// {selfID, otherID}.
func (d *Directory) find(ctx context.Context, selfID, otherID int) (platformapi.Room, bool, error) {
	rooms, err := d.api.ListRooms(ctx)
	if err != nil {
		return platformapi.Room{}, false, err
	}
	for _, room := range rooms {
		if !room.IsPrivate {
			continue
		}
		parts, err := d.api.ListParticipants(ctx, room.ID)
		if err != nil {
			return platformapi.Room{}, false, err
		}
		ids := make(map[int]struct{}, len(parts))
		for _, p := range parts {
			ids[p.User.ID] = struct{}{}
		}
		if len(ids) != 2 {
			continue
		}
		_, hasSelf := ids[selfID]
		_, hasOther := ids[otherID]
		if hasSelf && hasOther {
			return room, true, nil
		}
	}
	return platformapi.Room{}, false, nil
}

func observeResolve(start time.Time) {
	if telemetry.ResolveDuration != nil {
		telemetry.ResolveDuration.Observe(time.Since(start).Seconds())
	}
}
