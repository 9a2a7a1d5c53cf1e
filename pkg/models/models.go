package models

import (
	"time"

	"github.com/google/uuid"
)

// Role of a member inside a room.
type Role string

const (
	RoleHost     Role = "host"
	RoleCohost   Role = "cohost"
	RoleListener Role = "listener"
)

// UploadPolicy narrows or widens who may add songs to a room's queue.
// It overrides the static role table for the upload action only.
type UploadPolicy string

const (
	UploadHost       UploadPolicy = "host"
	UploadHostCohost UploadPolicy = "host_cohost"
	UploadAll        UploadPolicy = "all"
)

// Visibility controls whether a room shows up in public discovery.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type User struct {
	ID            uuid.UUID  `json:"id" gorm:"primaryKey"`
	Username      string     `json:"username" gorm:"index"`
	IsGuest       bool       `json:"is_guest"`
	SocketID      string     `json:"socket_id"` // live connection id, empty when offline
	CurrentRoomID *uuid.UUID `json:"current_room_id"`
	LastSeen      time.Time  `json:"last_seen"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Room is the authoritative synchronization unit: roster, playback clock,
// skip votes and upload policy all hang off this record.
type Room struct {
	ID            uuid.UUID    `json:"id" gorm:"primaryKey"`
	Code          string       `json:"code" gorm:"unique;size:6"`
	Name          string       `json:"name" gorm:"size:100"`
	HostID        uuid.UUID    `json:"host_id" gorm:"index"`
	Visibility    Visibility   `json:"visibility" gorm:"size:16;default:public"`
	Members       []RoomMember `json:"members" gorm:"foreignKey:RoomID"`
	CurrentSongID *uuid.UUID   `json:"current_song_id"`
	CurrentTime   float64      `json:"current_time"`
	IsPlaying     bool         `json:"is_playing"`
	LastUpdated   time.Time    `json:"last_updated"`
	IsClosed      bool         `json:"is_closed" gorm:"index"`
	WhoCanUpload  UploadPolicy `json:"who_can_upload" gorm:"size:16;default:host_cohost"`
	SkipVotes     []SkipVote   `json:"skip_votes" gorm:"foreignKey:RoomID"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type RoomMember struct {
	RoomID   uuid.UUID `json:"room_id" gorm:"primaryKey"`
	UserID   uuid.UUID `json:"user_id" gorm:"primaryKey"`
	Role     Role      `json:"role" gorm:"size:16;default:listener"`
	JoinedAt time.Time `json:"joined_at"`
}

type SkipVote struct {
	RoomID  uuid.UUID `json:"room_id" gorm:"primaryKey"`
	UserID  uuid.UUID `json:"user_id" gorm:"primaryKey"`
	VotedAt time.Time `json:"voted_at"`
}

// Song is a queue item. Order is dense within a room and determines
// playback succession; "order" is reserved in MySQL, hence queue_order.
type Song struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey"`
	RoomID     uuid.UUID  `json:"room_id" gorm:"index:idx_songs_room_order"`
	UploadedBy uuid.UUID  `json:"uploaded_by"`
	Title      string     `json:"title" gorm:"size:200"`
	Artist     string     `json:"artist" gorm:"size:200"`
	Duration   float64    `json:"duration"`
	Order      int        `json:"order" gorm:"column:queue_order;index:idx_songs_room_order"`
	Likes      int        `json:"likes"`
	Dislikes   int        `json:"dislikes"`
	UserVotes  []SongVote `json:"user_votes" gorm:"foreignKey:SongID"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type SongVote struct {
	SongID uuid.UUID `json:"song_id" gorm:"primaryKey"`
	UserID uuid.UUID `json:"user_id" gorm:"primaryKey"`
	Vote   int       `json:"vote"` // 1 = like, -1 = dislike
}

type ChatMessage struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey"`
	RoomID    uuid.UUID  `json:"room_id" gorm:"index:idx_chat_room_created"`
	UserID    *uuid.UUID `json:"user_id"` // nil for system messages
	Username  string     `json:"username" gorm:"size:30"`
	Message   string     `json:"message" gorm:"size:1000"`
	IsSystem  bool       `json:"is_system"`
	CreatedAt time.Time  `json:"created_at" gorm:"index:idx_chat_room_created"`
}
