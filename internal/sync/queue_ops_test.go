package sync

import (
	"context"
	"errors"
	"testing"
)

func TestAddSongAppendsAtTail(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	seedSong(store, room, hostID, "a", 0)
	seedSong(store, room, hostID, "b", 4) // gap in orders

	e, rec := newTestEngine(store)
	defer e.Close()

	view, err := e.AddSong(context.Background(), room.ID.String(), hostID, "  c  ", "", 210)
	if err != nil {
		t.Fatalf("add song: %v", err)
	}
	if view.Title != "c" {
		t.Fatalf("title = %q, want trimmed %q", view.Title, "c")
	}
	if view.Artist != "Unknown Artist" {
		t.Fatalf("artist = %q, want default", view.Artist)
	}
	if view.Order != 5 {
		t.Fatalf("order = %d, want max+1 = 5", view.Order)
	}
	if len(rec.byEvent(EventSongAdded)) != 1 || len(rec.byEvent(EventQueueList)) != 1 {
		t.Fatal("expected song_added and queue_list broadcasts")
	}
}

func TestAddSongRejectsBlankTitle(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	e, _ := newTestEngine(store)
	defer e.Close()

	if _, err := e.AddSong(context.Background(), room.ID.String(), hostID, "   ", "x", 0); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected invalid payload for blank title, got %v", err)
	}
}

func TestAddSongPermission(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	l1 := seedUser(store, "l1")
	room := seedRoom(store, hostID, l1)
	e, _ := newTestEngine(store)
	defer e.Close()

	if _, err := e.AddSong(context.Background(), room.ID.String(), l1, "t", "a", 0); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("listener upload under host_cohost policy should be denied, got %v", err)
	}
}

func TestReorderAssignsIndexOrder(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	a := seedSong(store, room, hostID, "a", 0)
	b := seedSong(store, room, hostID, "b", 1)
	c := seedSong(store, room, hostID, "c", 2)

	e, _ := newTestEngine(store)
	defer e.Close()

	queue, err := e.Reorder(context.Background(), room.ID.String(), hostID,
		[]string{c.ID.String(), a.ID.String(), b.ID.String()})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := []string{c.ID.String(), a.ID.String(), b.ID.String()}
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	for i, id := range want {
		if queue[i].ID != id {
			t.Fatalf("queue[%d] = %s, want %s", i, queue[i].ID, id)
		}
		if queue[i].Order != i {
			t.Fatalf("queue[%d].Order = %d, want %d", i, queue[i].Order, i)
		}
	}
}

func TestReorderIgnoresUnknownAndKeepsOmitted(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	a := seedSong(store, room, hostID, "a", 0)
	b := seedSong(store, room, hostID, "b", 1)
	c := seedSong(store, room, hostID, "c", 5)

	e, _ := newTestEngine(store)
	defer e.Close()

	// Unknown id at position 0 still consumes an index; c is omitted and
	// keeps its prior order.
	_, err := e.Reorder(context.Background(), room.ID.String(), hostID,
		[]string{"not-a-song", b.ID.String(), a.ID.String()})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := store.song(b.ID.String()).Order; got != 1 {
		t.Fatalf("b order = %d, want 1", got)
	}
	if got := store.song(a.ID.String()).Order; got != 2 {
		t.Fatalf("a order = %d, want 2", got)
	}
	if got := store.song(c.ID.String()).Order; got != 5 {
		t.Fatalf("omitted c order = %d, want unchanged 5", got)
	}
}

func TestRemoveCurrentMovesToFirstRemaining(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	a := seedSong(store, room, hostID, "a", 0)
	b := seedSong(store, room, hostID, "b", 1)
	seedSong(store, room, hostID, "c", 2)
	setCurrent(store, room.ID.String(), b.ID)

	e, _ := newTestEngine(store)
	defer e.Close()
	ctx := context.Background()

	if err := e.Remove(ctx, room.ID.String(), hostID, b.ID.String()); err != nil {
		t.Fatalf("remove: %v", err)
	}

	stored := store.room(room.ID.String())
	if stored.CurrentSongID == nil || *stored.CurrentSongID != a.ID {
		t.Fatalf("current = %v, want first remaining %s", stored.CurrentSongID, a.ID)
	}
	if stored.CurrentTime != 0 || !stored.IsPlaying {
		t.Fatalf("clock = (%v, %v), want reset and playing", stored.CurrentTime, stored.IsPlaying)
	}
	if len(stored.SkipVotes) != 0 {
		t.Fatalf("skip votes = %d, want cleared", len(stored.SkipVotes))
	}
	if store.song(b.ID.String()) != nil {
		t.Fatal("removed song still stored")
	}
}

func TestRemoveLastSongStopsPlayback(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	a := seedSong(store, room, hostID, "a", 0)
	setCurrent(store, room.ID.String(), a.ID)

	e, _ := newTestEngine(store)
	defer e.Close()

	if err := e.Remove(context.Background(), room.ID.String(), hostID, a.ID.String()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	stored := store.room(room.ID.String())
	if stored.CurrentSongID != nil || stored.IsPlaying {
		t.Fatal("emptying the queue should stop playback")
	}
}

func TestRemoveIsHostOnly(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	cohostID := seedUser(store, "cohost")
	room := seedRoom(store, hostID, cohostID)
	a := seedSong(store, room, hostID, "a", 0)

	e, _ := newTestEngine(store)
	defer e.Close()
	ctx := context.Background()

	if _, err := e.Promote(ctx, room.ID.String(), hostID, cohostID, "cohost"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := e.Remove(ctx, room.ID.String(), cohostID, a.ID.String()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("cohost remove should be denied, got %v", err)
	}
}

func TestSongVoteToggleAndSwitch(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	l1 := seedUser(store, "l1")
	room := seedRoom(store, hostID, l1)
	a := seedSong(store, room, hostID, "a", 0)

	e, _ := newTestEngine(store)
	defer e.Close()
	ctx := context.Background()
	roomID := room.ID.String()
	songID := a.ID.String()

	counts, err := e.SongVote(ctx, roomID, l1, songID, 1)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if counts.Likes != 1 || counts.Dislikes != 0 {
		t.Fatalf("counts = %+v, want 1/0", counts)
	}

	// Same vote again un-votes.
	counts, err = e.SongVote(ctx, roomID, l1, songID, 1)
	if err != nil {
		t.Fatalf("un-vote: %v", err)
	}
	if counts.Likes != 0 || counts.Dislikes != 0 {
		t.Fatalf("counts = %+v, want 0/0 after toggle", counts)
	}

	// Like then dislike switches sides.
	if _, err := e.SongVote(ctx, roomID, l1, songID, 1); err != nil {
		t.Fatalf("like: %v", err)
	}
	counts, err = e.SongVote(ctx, roomID, l1, songID, -1)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if counts.Likes != 0 || counts.Dislikes != 1 {
		t.Fatalf("counts = %+v, want 0/1 after switch", counts)
	}

	// A second voter's like is independent.
	counts, err = e.SongVote(ctx, roomID, hostID, songID, 1)
	if err != nil {
		t.Fatalf("host like: %v", err)
	}
	if counts.Likes != 1 || counts.Dislikes != 1 {
		t.Fatalf("counts = %+v, want 1/1", counts)
	}

	stored := store.song(songID)
	if len(stored.UserVotes) != 2 {
		t.Fatalf("recorded votes = %d, want 2", len(stored.UserVotes))
	}
}

func TestSongVoteValidation(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	outsider := seedUser(store, "outsider")
	room := seedRoom(store, hostID)
	a := seedSong(store, room, hostID, "a", 0)

	e, _ := newTestEngine(store)
	defer e.Close()
	ctx := context.Background()

	if _, err := e.SongVote(ctx, room.ID.String(), hostID, a.ID.String(), 0); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("vote 0 should be invalid, got %v", err)
	}
	if _, err := e.SongVote(ctx, room.ID.String(), outsider, a.ID.String(), 1); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-member vote should be denied, got %v", err)
	}
	if _, err := e.SongVote(ctx, room.ID.String(), hostID, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("vote on missing song should be not found, got %v", err)
	}
}
