package sync

import (
	"context"
	"time"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Read-side DTOs returned through acks and broadcasts. The authoritative
// room record holds ids only; these views are assembled by joining the
// store at response time. Field names follow the socket wire format.

type MemberView struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoomView struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	HostID       string       `json:"hostId"`
	Members      []MemberView `json:"members"`
	MemberCount  int          `json:"memberCount"`
	WhoCanUpload string       `json:"whoCanUpload"`
	IsClosed     bool         `json:"isClosed"`
}

type SongView struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Duration     float64 `json:"duration"`
	Order        int     `json:"order"`
	Likes        int     `json:"likes"`
	Dislikes     int     `json:"dislikes"`
	UploadedBy   string  `json:"uploadedBy"`
	UploaderName string  `json:"uploaderName,omitempty"`
}

type MessageView struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	IsSystem  bool      `json:"isSystem"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaybackState is the snapshot a joining client synchronizes against.
type PlaybackState struct {
	CurrentSongID *string   `json:"currentSongId"`
	CurrentSong   *SongView `json:"currentSong"`
	CurrentTime   float64   `json:"currentTime"`
	IsPlaying     bool      `json:"isPlaying"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// JoinResult is the synchronous reply to join_room.
type JoinResult struct {
	State PlaybackState `json:"state"`
	Room  RoomView      `json:"room"`
}

// SkipTally is the synchronous reply to vote_skip.
type SkipTally struct {
	Votes     int  `json:"votes"`
	Threshold int  `json:"threshold"`
	Skipped   bool `json:"skipped"`
}

// VoteCounts is the synchronous reply to song_vote.
type VoteCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// RoomState is the full read model served over HTTP: room, roster, queue
// and playback snapshot in one response.
type RoomState struct {
	Room  RoomView      `json:"room"`
	Queue []SongView    `json:"queue"`
	State PlaybackState `json:"state"`
}

func (e *Engine) songView(ctx context.Context, song *models.Song) SongView {
	v := SongView{
		ID:         song.ID.String(),
		Title:      song.Title,
		Artist:     song.Artist,
		Duration:   song.Duration,
		Order:      song.Order,
		Likes:      song.Likes,
		Dislikes:   song.Dislikes,
		UploadedBy: song.UploadedBy.String(),
	}
	if u, err := e.store.FindUser(ctx, v.UploadedBy); err == nil && u != nil {
		v.UploaderName = u.Username
	}
	return v
}

func (e *Engine) queueView(ctx context.Context, songs []*models.Song) []SongView {
	views := make([]SongView, 0, len(songs))
	for _, s := range songs {
		views = append(views, e.songView(ctx, s))
	}
	return views
}

func (e *Engine) roomView(ctx context.Context, room *models.Room) RoomView {
	members := make([]MemberView, 0, len(room.Members))
	for i := range room.Members {
		m := room.Members[i]
		mv := MemberView{
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt,
		}
		if u, err := e.store.FindUser(ctx, mv.UserID); err == nil && u != nil {
			mv.Username = u.Username
		}
		members = append(members, mv)
	}
	return RoomView{
		ID:           room.ID.String(),
		Code:         room.Code,
		Name:         room.Name,
		HostID:       room.HostID.String(),
		Members:      members,
		MemberCount:  len(room.Members),
		WhoCanUpload: string(room.WhoCanUpload),
		IsClosed:     room.IsClosed,
	}
}

func (e *Engine) playbackState(ctx context.Context, room *models.Room) PlaybackState {
	state := PlaybackState{
		CurrentTime: room.CurrentTime,
		IsPlaying:   room.IsPlaying,
		LastUpdated: room.LastUpdated,
	}
	if room.CurrentSongID != nil {
		id := room.CurrentSongID.String()
		state.CurrentSongID = &id
		if song, err := e.store.FindSong(ctx, room.ID.String(), id); err == nil && song != nil {
			v := e.songView(ctx, song)
			state.CurrentSong = &v
		}
	}
	return state
}
