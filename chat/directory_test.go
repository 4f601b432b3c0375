package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/testutil"
)

var (
	alice = platformapi.User{ID: 1, Username: "alice", FirstName: "Alice"}
	bob   = platformapi.User{ID: 2, Username: "bob", FirstName: "Bob"}
	carol = platformapi.User{ID: 3, Username: "carol"}
)

func seedUsers(f *testutil.FakePlatform) {
	f.AddUser(alice)
	f.AddUser(bob)
	f.AddUser(carol)
}

func TestResolveOrCreateCreatesOnce(t *testing.T) {
	f := testutil.NewFakePlatform(t)
	seedUsers(f)
	d := NewDirectory(f.Client())
	ctx := context.Background()

	room, err := d.ResolveOrCreate(ctx, alice, bob)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !room.IsPrivate {
		t.Errorf("created room is not private")
	}
	if want := "Private Chat: alice-bob"; room.Name != want {
		t.Errorf("room name = %q, want %q", room.Name, want)
	}

	again, err := d.ResolveOrCreate(ctx, alice, bob)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.ID != room.ID {
		t.Errorf("second resolve returned room %d, want %d", again.ID, room.ID)
	}
	if n := len(f.Rooms()); n != 1 {
		t.Errorf("got %d rooms, want 1", n)
	}
}

func TestResolveOrCreateReversedPair(t *testing.T) {
	f := testutil.NewFakePlatform(t)
	seedUsers(f)
	d := NewDirectory(f.Client())
	ctx := context.Background()

	room, err := d.ResolveOrCreate(ctx, alice, bob)
	if err != nil {
		t.Fatalf("resolve alice/bob: %v", err)
	}
	reversed, err := d.ResolveOrCreate(ctx, bob, alice)
	if err != nil {
		t.Fatalf("resolve bob/alice: %v", err)
	}
	if reversed.ID != room.ID {
		t.Errorf("reversed pair resolved to room %d, want %d", reversed.ID, room.ID)
	}
}

func TestResolveOrCreateDistinctPairs(t *testing.T) {
	f := testutil.NewFakePlatform(t)
	seedUsers(f)
	d := NewDirectory(f.Client())
	ctx := context.Background()

	ab, err := d.ResolveOrCreate(ctx, alice, bob)
	if err != nil {
		t.Fatalf("resolve alice/bob: %v", err)
	}
	ac, err := d.ResolveOrCreate(ctx, alice, carol)
	if err != nil {
		t.Fatalf("resolve alice/carol: %v", err)
	}
	if ab.ID == ac.ID {
		t.Errorf("distinct pairs resolved to the same room %d", ab.ID)
	}
}

func TestResolveOrCreateIgnoresGroupRooms(t *testing.T) {
	f := testutil.NewFakePlatform(t)
	seedUsers(f)
	// A course room containing both users must not satisfy the pair lookup.
	f.AddRoom("Go 101", false, alice.ID, bob.ID, carol.ID)
	// Nor does a private room with a third member.
	f.AddRoom("group dm", true, alice.ID, bob.ID, carol.ID)

	d := NewDirectory(f.Client())
	room, err := d.ResolveOrCreate(context.Background(), alice, bob)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(room.Name, "Private Chat:") {
		t.Errorf("resolved to existing non-pair room %q", room.Name)
	}
}

func TestResolveOrCreateConcurrent(t *testing.T) {
	f := testutil.NewFakePlatform(t)
	seedUsers(f)
	d := NewDirectory(f.Client())

	const n = 8
	var wg sync.WaitGroup
	ids := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room, err := d.ResolveOrCreate(context.Background(), alice, bob)
			if err != nil {
				t.Errorf("concurrent resolve %d: %v", i, err)
				return
			}
			ids[i] = room.ID
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent resolves produced rooms %d and %d", ids[0], ids[i])
		}
	}
	if rooms := f.Rooms(); len(rooms) != 1 {
		t.Errorf("got %d rooms after concurrent resolves, want 1", len(rooms))
	}
}
