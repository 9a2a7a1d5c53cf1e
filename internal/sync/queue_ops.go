package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// AddSong appends a song at the tail of the queue (order = current max + 1).
// Gated by the upload permission, which the room's WhoCanUpload policy may
// override. Audio blobs are handled elsewhere; the queue only carries
// metadata.
func (e *Engine) AddSong(ctx context.Context, roomID, userID, title, artist string, duration float64) (*SongView, error) {
	var view *SongView
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, userID, ActionUpload) {
			return fmt.Errorf("%w: no permission to add songs", ErrPermissionDenied)
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return fmt.Errorf("%w: title required", ErrInvalidPayload)
		}
		uid, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("%w: bad user id", ErrInvalidPayload)
		}

		songs, err := e.store.FindSongsByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find songs: %w", err)
		}
		order := 0
		for _, s := range songs {
			if s.Order >= order {
				order = s.Order + 1
			}
		}

		artist = strings.TrimSpace(artist)
		if artist == "" {
			artist = "Unknown Artist"
		}
		song := &models.Song{
			ID:         uuid.New(),
			RoomID:     room.ID,
			UploadedBy: uid,
			Title:      title,
			Artist:     artist,
			Duration:   duration,
			Order:      order,
			CreatedAt:  e.now(),
			UpdatedAt:  e.now(),
		}
		if err := e.store.SaveSong(ctx, song); err != nil {
			return fmt.Errorf("save song: %w", err)
		}

		v := e.songView(ctx, song)
		view = &v
		e.cast.ToRoom(roomID, EventSongAdded, v)
		e.broadcastQueue(ctx, roomID)
		e.publish(ctx, EventSongAdded, roomID, userID, v)
		return nil
	})
	return view, err
}

// Reorder assigns order = index for each supplied song id. Ids that are not
// in the room's queue are ignored; songs omitted from the list keep their
// prior order, even when that leaves duplicate order values. Returns the
// resulting queue.
func (e *Engine) Reorder(ctx context.Context, roomID, userID string, songIDs []string) ([]SongView, error) {
	var queue []SongView
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, userID, ActionReorderQueue) {
			return fmt.Errorf("%w: no permission to reorder", ErrPermissionDenied)
		}

		songs, err := e.store.FindSongsByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find songs: %w", err)
		}
		byID := make(map[string]*models.Song, len(songs))
		for _, s := range songs {
			byID[s.ID.String()] = s
		}
		for i, id := range songIDs {
			song, ok := byID[id]
			if !ok {
				continue
			}
			song.Order = i
			song.UpdatedAt = e.now()
			if err := e.store.SaveSong(ctx, song); err != nil {
				return fmt.Errorf("save song: %w", err)
			}
		}

		songs, err = e.store.FindSongsByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find songs: %w", err)
		}
		queue = e.queueView(ctx, songs)
		e.cast.ToRoom(roomID, EventQueueList, map[string]any{"queue": queue})
		return nil
	})
	return queue, err
}

// Remove deletes a song from the queue. Removing the current song moves
// playback to the first remaining song by order, or stops it on an empty
// queue; either way the skip votes are for a song that no longer plays and
// are cleared.
func (e *Engine) Remove(ctx context.Context, roomID, userID, songID string) error {
	return e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !HasPermission(room, userID, ActionRemoveSong) {
			return fmt.Errorf("%w: no permission to remove song", ErrPermissionDenied)
		}
		song, err := e.store.FindSong(ctx, roomID, songID)
		if err != nil {
			return fmt.Errorf("find song: %w", err)
		}
		if song == nil {
			return fmt.Errorf("%w: song not found", ErrNotFound)
		}

		wasCurrent := room.CurrentSongID != nil && room.CurrentSongID.String() == songID
		if err := e.store.DeleteSong(ctx, roomID, songID); err != nil {
			return fmt.Errorf("delete song: %w", err)
		}

		songs, err := e.store.FindSongsByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find songs: %w", err)
		}

		if wasCurrent {
			var next *models.Song
			if len(songs) > 0 {
				next = songs[0]
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
				return err
			}
		}

		e.cast.ToRoom(roomID, EventQueueList, map[string]any{"queue": e.queueView(ctx, songs)})
		e.cast.ToRoom(roomID, EventQueueUpdated, map[string]any{
			"currentSong": e.currentSongView(ctx, room),
			"currentTime": room.CurrentTime,
			"isPlaying":   room.IsPlaying,
			"lastUpdated": room.LastUpdated,
		})
		return nil
	})
}

// SongVote toggles the caller's like/dislike on a song. Membership is the
// only requirement. Same vote again removes it, the opposite vote switches
// it; the counters always equal the signed tally of recorded votes and
// never go below zero.
func (e *Engine) SongVote(ctx context.Context, roomID, userID, songID string, vote int) (*VoteCounts, error) {
	if vote != 1 && vote != -1 {
		return nil, fmt.Errorf("%w: vote must be 1 or -1", ErrInvalidPayload)
	}
	var counts *VoteCounts
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if _, ok := MemberRole(room, userID); !ok {
			return fmt.Errorf("%w: not a member", ErrPermissionDenied)
		}
		song, err := e.store.FindSong(ctx, roomID, songID)
		if err != nil {
			return fmt.Errorf("find song: %w", err)
		}
		if song == nil {
			return fmt.Errorf("%w: song not found", ErrNotFound)
		}
		uid, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("%w: bad user id", ErrInvalidPayload)
		}

		applyVote(song, uid, vote)
		song.UpdatedAt = e.now()
		if err := e.store.SaveSong(ctx, song); err != nil {
			return fmt.Errorf("save song: %w", err)
		}

		counts = &VoteCounts{Likes: song.Likes, Dislikes: song.Dislikes}
		e.cast.ToRoom(roomID, EventSongVoteUpdated, map[string]any{
			"songId":   songID,
			"likes":    song.Likes,
			"dislikes": song.Dislikes,
		})
		e.publish(ctx, EventSongVoteUpdated, roomID, userID, map[string]any{
			"songId": songID,
			"vote":   vote,
		})
		return nil
	})
	return counts, err
}

func applyVote(song *models.Song, userID uuid.UUID, vote int) {
	for i := range song.UserVotes {
		if song.UserVotes[i].UserID != userID {
			continue
		}
		if song.UserVotes[i].Vote == vote {
			// Same vote again: un-vote.
			song.UserVotes = append(song.UserVotes[:i], song.UserVotes[i+1:]...)
			if vote == 1 {
				song.Likes = max0(song.Likes - 1)
			} else {
				song.Dislikes = max0(song.Dislikes - 1)
			}
			return
		}
		// Switch sides.
		song.UserVotes[i].Vote = vote
		if vote == 1 {
			song.Likes++
			song.Dislikes = max0(song.Dislikes - 1)
		} else {
			song.Dislikes++
			song.Likes = max0(song.Likes - 1)
		}
		return
	}
	song.UserVotes = append(song.UserVotes, models.SongVote{
		SongID: song.ID,
		UserID: userID,
		Vote:   vote,
	})
	if vote == 1 {
		song.Likes++
	} else {
		song.Dislikes++
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (e *Engine) currentSongView(ctx context.Context, room *models.Room) *SongView {
	if room.CurrentSongID == nil {
		return nil
	}
	song, err := e.store.FindSong(ctx, room.ID.String(), room.CurrentSongID.String())
	if err != nil || song == nil {
		return nil
	}
	v := e.songView(ctx, song)
	return &v
}

func (e *Engine) broadcastQueue(ctx context.Context, roomID string) {
	songs, err := e.store.FindSongsByRoom(ctx, roomID)
	if err != nil {
		return
	}
	e.cast.ToRoom(roomID, EventQueueList, map[string]any{"queue": e.queueView(ctx, songs)})
}
