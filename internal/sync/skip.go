package sync

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// skipQuorum is the fraction of eligible members (listeners and cohosts;
// the host is excluded from the denominator) whose votes force a skip.
const skipQuorum = 0.5

// VoteSkip records a skip vote for the current song. Voting twice is a
// no-op. When the tally reaches the quorum threshold the engine advances
// exactly once and clears the vote set. The tally is returned either way.
func (e *Engine) VoteSkip(ctx context.Context, roomID, userID string) (*SkipTally, error) {
	var tally *SkipTally
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if _, ok := MemberRole(room, userID); !ok {
			return fmt.Errorf("%w: not a member", ErrPermissionDenied)
		}

		already := false
		for _, v := range room.SkipVotes {
			if v.UserID.String() == userID {
				already = true
				break
			}
		}
		if !already {
			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("%w: bad user id", ErrInvalidPayload)
			}
			room.SkipVotes = append(room.SkipVotes, models.SkipVote{
				RoomID:  room.ID,
				UserID:  uid,
				VotedAt: e.now(),
			})
		}

		eligible := 0
		for _, m := range room.Members {
			if m.Role == models.RoleListener || m.Role == models.RoleCohost {
				eligible++
			}
		}
		threshold := int(math.Ceil(float64(eligible) * skipQuorum))
		if threshold < 1 {
			threshold = 1
		}
		votes := len(room.SkipVotes)
		tally = &SkipTally{Votes: votes, Threshold: threshold}

		if votes >= threshold {
			// Consensus is the authorization; no per-user skip check here.
			next, err := e.advance(ctx, room)
			if err != nil {
				return err
			}
			tally.Skipped = true
			e.broadcastAdvance(ctx, roomID, room, next, true)
			e.publish(ctx, EventQueueUpdated, roomID, userID, map[string]any{"voteSkipped": true})
			return nil
		}
		return e.saveRoom(ctx, room)
	})
	return tally, err
}

// Skip advances to the next song on behalf of a privileged member.
func (e *Engine) Skip(ctx context.Context, roomID, userID string) (*SongView, error) {
	var current *SongView
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, userID, ActionSkip) {
			return fmt.Errorf("%w: no permission to skip", ErrPermissionDenied)
		}
		next, err := e.advance(ctx, room)
		if err != nil {
			return err
		}
		if next != nil {
			v := e.songView(ctx, next)
			current = &v
		}
		e.broadcastAdvance(ctx, roomID, room, next, false)
		e.publish(ctx, EventQueueUpdated, roomID, userID, map[string]any{"skipped": true})
		return nil
	})
	return current, err
}

// advance computes the next song (successor by order, wrapping to the head
// when the current song is last or unknown, nil on an empty queue), resets
// the clock, clears the skip votes and persists the room.
func (e *Engine) advance(ctx context.Context, room *models.Room) (*models.Song, error) {
	songs, err := e.store.FindSongsByRoom(ctx, room.ID.String())
	if err != nil {
		return nil, fmt.Errorf("find songs: %w", err)
	}

	var next *models.Song
	if len(songs) > 0 {
		idx := -1
		if room.CurrentSongID != nil {
			for i, s := range songs {
				if s.ID == *room.CurrentSongID {
					idx = i
					break
				}
			}
		}
		if idx >= 0 && idx+1 < len(songs) {
			next = songs[idx+1]
		} else {
			next = songs[0]
		}
	}

	if next != nil {
		id := next.ID
		room.CurrentSongID = &id
	} else {
		room.CurrentSongID = nil
	}
	room.CurrentTime = 0
	room.IsPlaying = next != nil
	room.SkipVotes = nil
	room.LastUpdated = e.now()
	if err := e.saveRoom(ctx, room); err != nil {
		return nil, err
	}
	return next, nil
}

func (e *Engine) broadcastAdvance(ctx context.Context, roomID string, room *models.Room, next *models.Song, byVote bool) {
	var view *SongView
	if next != nil {
		v := e.songView(ctx, next)
		view = &v
	}
	e.cast.ToRoom(roomID, EventQueueUpdated, map[string]any{
		"currentSong": view,
		"currentTime": 0,
		"isPlaying":   next != nil,
		"lastUpdated": room.LastUpdated,
		"voteSkipped": byVote,
	})
}
