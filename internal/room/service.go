package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	roomsync "github.com/AyushDwivedi1230000/Music-Rooms/internal/sync"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Store is the persistence surface the room service needs.
// *database.MySQLDB implements it.
type Store interface {
	RoomCodeExists(ctx context.Context, code string) (bool, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	FindRoomByCode(ctx context.Context, code string) (*models.Room, error)
	ListPublicRooms(ctx context.Context, limit int) ([]*models.Room, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error)
}

// Cache is the snapshot cache in front of the store. *redis.RoomCache
// implements it; GetRoom returns (nil, nil) on a miss.
type Cache interface {
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	SetRoom(ctx context.Context, room *models.Room) error
}

// Service covers the thin room lifecycle surface around the sync engine:
// creation, code lookup, discovery and chat history. Anything that mutates
// a live room goes through the engine so it hits the per-room writer.
type Service struct {
	db     Store
	cache  Cache
	engine *roomsync.Engine
	log    *zap.Logger
}

func NewService(db Store, cache Cache, engine *roomsync.Engine, log *zap.Logger) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		engine: engine,
		log:    log,
	}
}

// CreateRoom creates an open room with the caller enrolled as host.
func (s *Service) CreateRoom(ctx context.Context, hostID, name string, visibility models.Visibility) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", roomsync.ErrInvalidPayload)
	}
	host, err := uuid.Parse(hostID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", roomsync.ErrInvalidPayload)
	}
	if visibility != models.VisibilityPrivate {
		visibility = models.VisibilityPublic
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	room := &models.Room{
		ID:           uuid.New(),
		Code:         code,
		Name:         name,
		HostID:       host,
		Visibility:   visibility,
		WhoCanUpload: models.UploadHostCohost,
		LastUpdated:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	room.Members = []models.RoomMember{{
		RoomID:   room.ID,
		UserID:   host,
		Role:     models.RoleHost,
		JoinedAt: now,
	}}

	if err := s.db.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if err := s.cache.SetRoom(ctx, room); err != nil {
		s.log.Warn("room cache write failed", zap.String("room", room.ID.String()), zap.Error(err))
	}

	if u, err := s.db.FindUser(ctx, hostID); err == nil && u != nil {
		u.CurrentRoomID = &room.ID
		u.LastSeen = now
		if err := s.db.SaveUser(ctx, u); err != nil {
			s.log.Warn("update host presence failed", zap.String("user", hostID), zap.Error(err))
		}
	}

	return room, nil
}

// JoinByCode enrolls the user in the room behind the code and returns its
// state. Enrollment runs on the room's writer, so two users joining at the
// same instant cannot clobber each other's membership.
func (s *Service) JoinByCode(ctx context.Context, code, userID string) (*roomsync.RoomState, error) {
	room, err := s.findOpenRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Enroll(ctx, room.ID.String(), userID); err != nil {
		return nil, err
	}
	return s.engine.State(ctx, room.ID.String())
}

// GetRoomByCode is the pre-join lookup for the dashboard.
func (s *Service) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return s.findOpenRoomByCode(ctx, code)
}

func (s *Service) findOpenRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return nil, fmt.Errorf("%w: bad room code", roomsync.ErrInvalidPayload)
	}
	room, err := s.db.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil || room.IsClosed {
		return nil, fmt.Errorf("%w: room not found or closed", roomsync.ErrNotFound)
	}
	return room, nil
}

// GetRoom serves reads through the snapshot cache with a database
// fallback, the same way the engine writes through it.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if room, err := s.cache.GetRoom(ctx, roomID); err == nil && room != nil {
		return room, nil
	}
	room, err := s.db.FindRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room not found", roomsync.ErrNotFound)
	}
	if err := s.cache.SetRoom(ctx, room); err != nil {
		s.log.Warn("room cache write failed", zap.String("room", roomID), zap.Error(err))
	}
	return room, nil
}

// ListPublicRooms returns open public rooms for discovery, most recently
// active first.
func (s *Service) ListPublicRooms(ctx context.Context) ([]*models.Room, error) {
	rooms, err := s.db.ListPublicRooms(ctx, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// ChatHistory returns the most recent messages, oldest first.
func (s *Service) ChatHistory(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	msgs, err := s.db.RecentMessages(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return msgs, nil
}
