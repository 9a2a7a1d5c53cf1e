package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

const (
	roomKeyPrefix = "room:"
	roomCacheTTL  = 24 * time.Hour
)

// RoomCache keeps JSON snapshots of room records in front of MySQL. The
// sync engine writes through on every mutation, so a cached snapshot is
// never older than the last authoritative write.
type RoomCache struct {
	client *redis.Client
}

func NewRoomCache(client *redis.Client) *RoomCache {
	return &RoomCache{client: client}
}

func (c *RoomCache) SetRoom(ctx context.Context, room *models.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	key := fmt.Sprintf("%s%s", roomKeyPrefix, room.ID)
	if err := c.client.Set(ctx, key, roomJSON, roomCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache room: %w", err)
	}
	return nil
}

// GetRoom returns (nil, nil) on a cache miss.
func (c *RoomCache) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	key := fmt.Sprintf("%s%s", roomKeyPrefix, roomID)
	roomJSON, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	var room models.Room
	if err := json.Unmarshal(roomJSON, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (c *RoomCache) DropRoom(ctx context.Context, roomID string) error {
	key := fmt.Sprintf("%s%s", roomKeyPrefix, roomID)
	return c.client.Del(ctx, key).Err()
}
