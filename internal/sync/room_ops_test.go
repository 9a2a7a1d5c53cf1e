package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

func TestJoinRequiresMembership(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	strangerID := seedUser(store, "stranger")
	room := seedRoom(store, hostID)
	e, _ := newTestEngine(store)
	defer e.Close()

	if _, err := e.Join(context.Background(), room.ID.String(), strangerID, "conn-1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for non-member, got %v", err)
	}
}

func TestJoinReturnsSnapshotAndNotifiesOthers(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	listenerID := seedUser(store, "ada")
	room := seedRoom(store, hostID, listenerID)
	song := seedSong(store, room, hostID, "track a", 0)
	setCurrent(store, room.ID.String(), song.ID)

	e, rec := newTestEngine(store)
	defer e.Close()

	res, err := e.Join(context.Background(), room.ID.String(), listenerID, "conn-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if res.State.CurrentSongID == nil || *res.State.CurrentSongID != song.ID.String() {
		t.Fatalf("snapshot current song = %v, want %s", res.State.CurrentSongID, song.ID)
	}
	if !res.State.IsPlaying {
		t.Fatal("snapshot should report playing")
	}
	if res.Room.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", res.Room.MemberCount)
	}

	joined := rec.byEvent(EventUserJoined)
	if len(joined) != 1 || joined[0].kind != "others" || joined[0].target != listenerID {
		t.Fatalf("expected one user_joined to others excluding %s, got %+v", listenerID, joined)
	}

	// Connection pointer recorded against the user.
	u, _ := store.FindUser(context.Background(), listenerID)
	if u.SocketID != "conn-1" {
		t.Fatalf("socket id = %q, want conn-1", u.SocketID)
	}
}

func TestEnrollIsIdempotent(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	userID := seedUser(store, "ada")
	room := seedRoom(store, hostID)
	e, _ := newTestEngine(store)
	defer e.Close()

	role1, err := e.Enroll(context.Background(), room.ID.String(), userID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	role2, err := e.Enroll(context.Background(), room.ID.String(), userID)
	if err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
	if role1 != models.RoleListener || role2 != models.RoleListener {
		t.Fatalf("roles = %s, %s; want listener twice", role1, role2)
	}

	stored := store.room(room.ID.String())
	if len(stored.Members) != 2 {
		t.Fatalf("member count = %d, want 2 (no duplicates)", len(stored.Members))
	}

	// Re-enrolling the host must not demote them.
	hostRole, err := e.Enroll(context.Background(), room.ID.String(), hostID)
	if err != nil {
		t.Fatalf("host re-enroll: %v", err)
	}
	if hostRole != models.RoleHost {
		t.Fatalf("host role after re-enroll = %s, want host", hostRole)
	}
}

func TestLeaveTransfersHostToEarliestMember(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	firstID := seedUser(store, "first")
	secondID := seedUser(store, "second")
	room := seedRoom(store, hostID, firstID, secondID)
	e, _ := newTestEngine(store)
	defer e.Close()

	if err := e.Leave(context.Background(), room.ID.String(), hostID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	stored := store.room(room.ID.String())
	if stored.IsClosed {
		t.Fatal("room closed despite remaining members")
	}
	if stored.HostID.String() != firstID {
		t.Fatalf("host = %s, want earliest-joined %s", stored.HostID, firstID)
	}
	role, _ := MemberRole(stored, firstID)
	if role != models.RoleHost {
		t.Fatalf("new host role = %s, want host", role)
	}
	if len(stored.Members) != 2 {
		t.Fatalf("member count = %d, want 2", len(stored.Members))
	}
}

func TestLastMemberLeavingClosesRoom(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	e, rec := newTestEngine(store)
	defer e.Close()

	if err := e.Leave(context.Background(), room.ID.String(), hostID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	stored := store.room(room.ID.String())
	if !stored.IsClosed {
		t.Fatal("room should close when the last member leaves")
	}
	if len(rec.byEvent(EventRoomClosed)) != 1 {
		t.Fatal("expected room_closed broadcast")
	}

	// Closed room accepts no further mutations.
	if err := e.RecordSeek(context.Background(), room.ID.String(), hostID, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on closed room, got %v", err)
	}
}

func TestLeaveDropsSkipVote(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	aID := seedUser(store, "a")
	bID := seedUser(store, "b")
	cID := seedUser(store, "c")
	room := seedRoom(store, hostID, aID, bID, cID)
	seedSong(store, room, hostID, "track", 0)
	e, _ := newTestEngine(store)
	defer e.Close()

	// One of three eligible listeners votes (threshold 2), then leaves.
	if _, err := e.VoteSkip(context.Background(), room.ID.String(), aID); err != nil {
		t.Fatalf("vote skip: %v", err)
	}
	if err := e.Leave(context.Background(), room.ID.String(), aID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	stored := store.room(room.ID.String())
	if len(stored.SkipVotes) != 0 {
		t.Fatalf("skip votes = %d, want 0 after voter left", len(stored.SkipVotes))
	}
}

func TestPlaybackLastWriterWins(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	listenerID := seedUser(store, "ada")
	room := seedRoom(store, hostID, listenerID)
	e, rec := newTestEngine(store)
	defer e.Close()

	ctx := context.Background()
	if err := e.RecordPlayback(ctx, room.ID.String(), hostID, 12.5, true); err != nil {
		t.Fatalf("playback: %v", err)
	}
	if err := e.RecordPlayback(ctx, room.ID.String(), listenerID, 3.0, false); err != nil {
		t.Fatalf("playback: %v", err)
	}

	stored := store.room(room.ID.String())
	if stored.CurrentTime != 3.0 || stored.IsPlaying {
		t.Fatalf("playback = (%v, %v), want last writer (3.0, false)", stored.CurrentTime, stored.IsPlaying)
	}

	// Progress reports go to others, seeks to the whole room.
	syncs := rec.byEvent(EventPlaybackSync)
	if len(syncs) != 2 || syncs[0].kind != "others" {
		t.Fatalf("expected playback_sync to others, got %+v", syncs)
	}
	if err := e.RecordSeek(ctx, room.ID.String(), hostID, 42); err != nil {
		t.Fatalf("seek: %v", err)
	}
	seeks := rec.byEvent(EventSeekSync)
	if len(seeks) != 1 || seeks[0].kind != "room" {
		t.Fatalf("expected seek_sync to whole room, got %+v", seeks)
	}
}

func TestPromoteAndKick(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	aID := seedUser(store, "a")
	bID := seedUser(store, "b")
	room := seedRoom(store, hostID, aID, bID)
	e, rec := newTestEngine(store)
	defer e.Close()

	ctx := context.Background()

	if _, err := e.Promote(ctx, room.ID.String(), aID, bID, "cohost"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-host promote should be denied, got %v", err)
	}
	role, err := e.Promote(ctx, room.ID.String(), hostID, aID, "cohost")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if role != models.RoleCohost {
		t.Fatalf("role = %s, want cohost", role)
	}
	// Unknown role requests degrade to listener.
	role, err = e.Promote(ctx, room.ID.String(), hostID, aID, "admin")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if role != models.RoleListener {
		t.Fatalf("role = %s, want listener", role)
	}

	if err := e.Kick(ctx, room.ID.String(), hostID, hostID); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("self-kick should be invalid, got %v", err)
	}
	if err := e.Kick(ctx, room.ID.String(), hostID, bID); err != nil {
		t.Fatalf("kick: %v", err)
	}
	stored := store.room(room.ID.String())
	if _, ok := MemberRole(stored, bID); ok {
		t.Fatal("kicked user still a member")
	}
	kicked := rec.byEvent(EventKickedFromRoom)
	if len(kicked) != 1 || kicked[0].target != bID {
		t.Fatalf("expected kicked_from_room to %s, got %+v", bID, kicked)
	}
}

func TestCloseRoomIsHostOnlyAndTerminal(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	aID := seedUser(store, "a")
	room := seedRoom(store, hostID, aID)
	e, _ := newTestEngine(store)
	defer e.Close()

	ctx := context.Background()
	if err := e.CloseRoom(ctx, room.ID.String(), aID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-host close should be denied, got %v", err)
	}
	if err := e.CloseRoom(ctx, room.ID.String(), hostID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := e.Join(ctx, room.ID.String(), aID, "conn-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("join on closed room should be not found, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	aID := seedUser(store, "a")
	room := seedRoom(store, hostID, aID)
	e, _ := newTestEngine(store)
	defer e.Close()

	ctx := context.Background()
	if err := e.UpdateSettings(ctx, room.ID.String(), hostID, "everyone"); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("bad policy should be invalid, got %v", err)
	}
	if err := e.UpdateSettings(ctx, room.ID.String(), aID, "all"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-host settings change should be denied, got %v", err)
	}
	if err := e.UpdateSettings(ctx, room.ID.String(), hostID, "all"); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	stored := store.room(room.ID.String())
	if stored.WhoCanUpload != models.UploadAll {
		t.Fatalf("policy = %s, want all", stored.WhoCanUpload)
	}
	// Listener can now add songs.
	if _, err := e.AddSong(ctx, room.ID.String(), aID, "new song", "someone", 200); err != nil {
		t.Fatalf("listener add under 'all' policy: %v", err)
	}
}
