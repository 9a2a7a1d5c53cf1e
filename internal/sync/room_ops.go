package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Outbound broadcast event names, shared with the gateway.
const (
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventPlaybackSync      = "playback_sync"
	EventSeekSync          = "seek_sync"
	EventQueueUpdated      = "queue_updated"
	EventQueueList         = "queue_list"
	EventChatMessage       = "chat_message"
	EventSongAdded         = "song_added"
	EventSongVoteUpdated   = "song_vote_updated"
	EventMemberRoleUpdated = "member_role_updated"
	EventKickedFromRoom    = "kicked_from_room"
	EventRoomClosed        = "room_closed"
	EventRoomSettings      = "room_settings_updated"
)

// Join binds an authenticated user's connection to a room. Idempotent for
// existing members; a user who was never enrolled is rejected. Replies with
// a full playback snapshot and notifies the rest of the room.
func (e *Engine) Join(ctx context.Context, roomID, userID, connID string) (*JoinResult, error) {
	var res *JoinResult
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if _, ok := MemberRole(room, userID); !ok {
			return fmt.Errorf("%w: not a member", ErrPermissionDenied)
		}

		user, err := e.store.FindUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		username := ""
		if user != nil {
			username = user.Username
			user.SocketID = connID
			user.CurrentRoomID = &room.ID
			user.LastSeen = e.now()
			if err := e.store.SaveUser(ctx, user); err != nil {
				return fmt.Errorf("save user: %w", err)
			}
		}

		res = &JoinResult{
			State: e.playbackState(ctx, room),
			Room:  e.roomView(ctx, room),
		}

		e.cast.ToOthers(roomID, userID, EventUserJoined, map[string]any{
			"userId":      userID,
			"username":    username,
			"memberCount": len(room.Members),
		})
		e.publish(ctx, EventUserJoined, roomID, userID, map[string]any{"username": username})
		return nil
	})
	return res, err
}

// Enroll adds the user to the roster as a listener. Used by the HTTP join
// flow; re-enrolling an existing member never duplicates the membership or
// changes its role. Returns the member's role.
func (e *Engine) Enroll(ctx context.Context, roomID, userID string) (models.Role, error) {
	var role models.Role
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if existing, ok := MemberRole(room, userID); ok {
			role = existing
			return nil
		}
		uid, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("%w: bad user id", ErrInvalidPayload)
		}
		if u, err := e.store.FindUser(ctx, userID); err != nil {
			return fmt.Errorf("find user: %w", err)
		} else if u == nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		room.Members = append(room.Members, models.RoomMember{
			RoomID:   room.ID,
			UserID:   uid,
			Role:     models.RoleListener,
			JoinedAt: e.now(),
		})
		role = models.RoleListener
		return e.saveRoom(ctx, room)
	})
	return role, err
}

// Leave removes the member from the roster. A host leaving hands the room
// to the earliest-joined remaining member; the last member leaving closes
// the room.
func (e *Engine) Leave(ctx context.Context, roomID, userID string) error {
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if _, ok := MemberRole(room, userID); !ok {
			return fmt.Errorf("%w: not a member", ErrNotFound)
		}

		username := e.usernameOf(ctx, userID)
		removeMember(room, userID)
		removeSkipVote(room, userID)

		if room.HostID.String() == userID {
			if next := earliestMember(room); next != nil {
				room.HostID = next.UserID
				next.Role = models.RoleHost
			} else {
				room.IsClosed = true
			}
		}
		if len(room.Members) == 0 {
			room.IsClosed = true
		}
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}

		if u, err := e.store.FindUser(ctx, userID); err == nil && u != nil {
			u.CurrentRoomID = nil
			u.SocketID = ""
			u.LastSeen = e.now()
			if err := e.store.SaveUser(ctx, u); err != nil {
				e.log.Warn("clear presence failed", zap.String("user", userID), zap.Error(err))
			}
		}

		e.cast.ToRoom(roomID, EventUserLeft, map[string]any{
			"userId":      userID,
			"username":    username,
			"memberCount": len(room.Members),
		})
		if room.IsClosed {
			e.cast.ToRoom(roomID, EventRoomClosed, map[string]any{"roomId": roomID})
		}
		e.publish(ctx, EventUserLeft, roomID, userID, map[string]any{"username": username})
		return nil
	})
}

// RecordPlayback overwrites the room clock from the latest client report.
// Last writer wins; no drift correction is attempted.
func (e *Engine) RecordPlayback(ctx context.Context, roomID, userID string, currentTime float64, playing bool) error {
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, userID, ActionPlay) {
			return fmt.Errorf("%w: no permission to play", ErrPermissionDenied)
		}
		room.CurrentTime = currentTime
		room.IsPlaying = playing
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}
		e.cast.ToOthers(roomID, userID, EventPlaybackSync, map[string]any{
			"currentTime": room.CurrentTime,
			"isPlaying":   room.IsPlaying,
			"lastUpdated": room.LastUpdated,
		})
		return nil
	})
}

// RecordSeek jumps the room clock. The sync goes to the whole room, sender
// included, since a seek is an authoritative jump rather than a periodic
// progress report.
func (e *Engine) RecordSeek(ctx context.Context, roomID, userID string, currentTime float64) error {
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, userID, ActionPlay) {
			return fmt.Errorf("%w: no permission to play", ErrPermissionDenied)
		}
		room.CurrentTime = currentTime
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}
		e.cast.ToRoom(roomID, EventSeekSync, map[string]any{
			"currentTime": room.CurrentTime,
			"lastUpdated": room.LastUpdated,
		})
		return nil
	})
}

// Promote sets the target member's role to cohost or listener. Host only;
// any other requested role degrades to listener.
func (e *Engine) Promote(ctx context.Context, roomID, actorID, targetID, role string) (models.Role, error) {
	var applied models.Role
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !IsHost(room, actorID) {
			return fmt.Errorf("%w: only host can promote users", ErrPermissionDenied)
		}
		member := findMember(room, targetID)
		if member == nil {
			return fmt.Errorf("%w: user not in room", ErrNotFound)
		}
		applied = models.RoleListener
		if models.Role(role) == models.RoleCohost {
			applied = models.RoleCohost
		}
		member.Role = applied
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}
		e.cast.ToRoom(roomID, EventMemberRoleUpdated, map[string]any{
			"userId": targetID,
			"role":   string(applied),
		})
		return nil
	})
	return applied, err
}

// Kick removes the target from the roster and tells their connection it
// happened. The host cannot kick themselves; leaving is the way out.
func (e *Engine) Kick(ctx context.Context, roomID, actorID, targetID string) error {
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, actorID, ActionKickUser) {
			return fmt.Errorf("%w: no permission to kick", ErrPermissionDenied)
		}
		if actorID == targetID {
			return fmt.Errorf("%w: cannot kick yourself", ErrInvalidPayload)
		}
		if findMember(room, targetID) == nil {
			return fmt.Errorf("%w: user not in room", ErrNotFound)
		}

		username := e.usernameOf(ctx, targetID)
		removeMember(room, targetID)
		removeSkipVote(room, targetID)
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}

		e.cast.ToUser(targetID, EventKickedFromRoom, map[string]any{"roomId": roomID})
		e.cast.ToRoom(roomID, EventUserLeft, map[string]any{
			"userId":      targetID,
			"username":    username,
			"memberCount": len(room.Members),
		})
		e.publish(ctx, EventUserLeft, roomID, targetID, map[string]any{"username": username, "kicked": true})
		return nil
	})
}

// CloseRoom marks the room terminal. Host only; once closed no further
// mutation is accepted.
func (e *Engine) CloseRoom(ctx context.Context, roomID, actorID string) error {
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !IsHost(room, actorID) {
			return fmt.Errorf("%w: only host can close the room", ErrPermissionDenied)
		}
		room.IsClosed = true
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}
		if err := e.cache.DropRoom(ctx, roomID); err != nil {
			e.log.Warn("room cache drop failed", zap.String("room", roomID), zap.Error(err))
		}
		e.cast.ToRoom(roomID, EventRoomClosed, map[string]any{"roomId": roomID})
		e.publish(ctx, EventRoomClosed, roomID, actorID, nil)
		return nil
	})
}

// UpdateSettings changes the room upload policy. Host only.
func (e *Engine) UpdateSettings(ctx context.Context, roomID, actorID string, whoCanUpload string) error {
	policy := models.UploadPolicy(whoCanUpload)
	switch policy {
	case models.UploadHost, models.UploadHostCohost, models.UploadAll:
	default:
		return fmt.Errorf("%w: invalid upload policy", ErrInvalidPayload)
	}
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !IsHost(room, actorID) {
			return fmt.Errorf("%w: only host can change room settings", ErrPermissionDenied)
		}
		room.WhoCanUpload = policy
		room.LastUpdated = e.now()
		if err := e.saveRoom(ctx, room); err != nil {
			return err
		}
		e.cast.ToRoom(roomID, EventRoomSettings, map[string]any{"whoCanUpload": whoCanUpload})
		return nil
	})
}

// Disconnected handles an abrupt socket loss: the live connection pointer
// is dropped, then the presence policy decides whether membership follows.
func (e *Engine) Disconnected(ctx context.Context, roomID, userID string) {
	err := e.dispatch(ctx, roomID, func() error {
		u, err := e.store.FindUser(ctx, userID)
		if err != nil || u == nil {
			return err
		}
		u.SocketID = ""
		u.LastSeen = e.now()
		return e.store.SaveUser(ctx, u)
	})
	if err != nil {
		e.log.Warn("disconnect cleanup failed", zap.String("user", userID), zap.Error(err))
	}
	e.presence.OnDisconnect(ctx, e, roomID, userID)
}

// State assembles the full read model for a room. Runs on the room worker
// so HTTP readers observe a consistent snapshot.
func (e *Engine) State(ctx context.Context, roomID string) (*RoomState, error) {
	var state *RoomState
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.store.FindRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find room: %w", err)
		}
		if room == nil {
			return fmt.Errorf("%w: room not found", ErrNotFound)
		}
		songs, err := e.store.FindSongsByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find songs: %w", err)
		}
		state = &RoomState{
			Room:  e.roomView(ctx, room),
			Queue: e.queueView(ctx, songs),
			State: e.playbackState(ctx, room),
		}
		return nil
	})
	return state, err
}

func (e *Engine) usernameOf(ctx context.Context, userID string) string {
	if u, err := e.store.FindUser(ctx, userID); err == nil && u != nil {
		return u.Username
	}
	return "User"
}

func findMember(room *models.Room, userID string) *models.RoomMember {
	for i := range room.Members {
		if room.Members[i].UserID.String() == userID {
			return &room.Members[i]
		}
	}
	return nil
}

func removeMember(room *models.Room, userID string) {
	kept := room.Members[:0]
	for _, m := range room.Members {
		if m.UserID.String() != userID {
			kept = append(kept, m)
		}
	}
	room.Members = kept
}

func removeSkipVote(room *models.Room, userID string) {
	kept := room.SkipVotes[:0]
	for _, v := range room.SkipVotes {
		if v.UserID.String() != userID {
			kept = append(kept, v)
		}
	}
	room.SkipVotes = kept
}

func earliestMember(room *models.Room) *models.RoomMember {
	if len(room.Members) == 0 {
		return nil
	}
	sort.SliceStable(room.Members, func(i, j int) bool {
		return room.Members[i].JoinedAt.Before(room.Members[j].JoinedAt)
	})
	return &room.Members[0]
}
