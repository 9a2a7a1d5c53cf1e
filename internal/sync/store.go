package sync

import (
	"context"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Store is the persistence surface the engine needs. Finders return
// (nil, nil) when the record does not exist; the engine maps that to
// ErrNotFound so implementations stay free of the core's error taxonomy.
//
// FindRoom must load the room with its members and skip votes; SaveRoom must
// persist those sets too (removals included). FindSongsByRoom returns songs
// ordered ascending by queue order, with per-user votes loaded.
type Store interface {
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) error
	FindSongsByRoom(ctx context.Context, roomID string) ([]*models.Song, error)
	FindSong(ctx context.Context, roomID, songID string) (*models.Song, error)
	SaveSong(ctx context.Context, song *models.Song) error
	DeleteSong(ctx context.Context, roomID, songID string) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	SaveChatMessage(ctx context.Context, msg *models.ChatMessage) error
}

// Broadcaster fans state deltas out to the sockets subscribed to a room.
// Delivery is best-effort, at most once.
type Broadcaster interface {
	ToRoom(roomID, event string, payload any)
	ToOthers(roomID, excludeUserID, event string, payload any)
	ToUser(userID, event string, payload any)
}

// EventPublisher mirrors room events onto the event feed (Kafka) for other
// instances and offline consumers. Failures are logged, never surfaced.
type EventPublisher interface {
	PublishRoomEvent(ctx context.Context, eventType, roomID, userID string, payload any) error
}

// RoomCache is a write-through snapshot cache in front of the store.
type RoomCache interface {
	SetRoom(ctx context.Context, room *models.Room) error
	DropRoom(ctx context.Context, roomID string) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToRoom(string, string, any)           {}
func (nopBroadcaster) ToOthers(string, string, string, any) {}
func (nopBroadcaster) ToUser(string, string, any)           {}

type nopPublisher struct{}

func (nopPublisher) PublishRoomEvent(context.Context, string, string, string, any) error {
	return nil
}

type nopCache struct{}

func (nopCache) SetRoom(context.Context, *models.Room) error { return nil }
func (nopCache) DropRoom(context.Context, string) error      { return nil }
