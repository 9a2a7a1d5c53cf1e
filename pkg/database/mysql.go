package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// MySQLDB is the persistent store behind the sync engine and the HTTP
// layer. Finder methods return (nil, nil) for missing records; the engine
// maps that to its own error taxonomy.
type MySQLDB struct {
	*gorm.DB
}

func NewMySQLDB(host, port, user, password, dbname string) (*MySQLDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQLDB{DB: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	return db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.RoomMember{},
		&models.SkipVote{},
		&models.Song{},
		&models.SongVote{},
		&models.ChatMessage{},
	)
}

// User operations

func (db *MySQLDB) CreateUser(ctx context.Context, user *models.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (db *MySQLDB) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *MySQLDB) SaveUser(ctx context.Context, user *models.User) error {
	return db.WithContext(ctx).Save(user).Error
}

// Room operations

// CreateRoom inserts the room together with its initial roster.
func (db *MySQLDB) CreateRoom(ctx context.Context, room *models.Room) error {
	return db.WithContext(ctx).Create(room).Error
}

func (db *MySQLDB) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := db.WithContext(ctx).
		Preload("Members").
		Preload("SkipVotes").
		First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (db *MySQLDB) FindRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := db.WithContext(ctx).
		Preload("Members").
		Preload("SkipVotes").
		First(&room, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// SaveRoom persists the room record and replaces its member and skip-vote
// sets, so removals stick.
func (db *MySQLDB) SaveRoom(ctx context.Context, room *models.Room) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(room).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		if len(room.Members) > 0 {
			if err := tx.Create(&room.Members).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.SkipVote{}).Error; err != nil {
			return err
		}
		if len(room.SkipVotes) > 0 {
			if err := tx.Create(&room.SkipVotes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *MySQLDB) RoomCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *MySQLDB) ListPublicRooms(ctx context.Context, limit int) ([]*models.Room, error) {
	var rooms []*models.Room
	err := db.WithContext(ctx).
		Preload("Members").
		Where("visibility = ? AND is_closed = ?", models.VisibilityPublic, false).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// Song operations

func (db *MySQLDB) FindSongsByRoom(ctx context.Context, roomID string) ([]*models.Song, error) {
	var songs []*models.Song
	err := db.WithContext(ctx).
		Preload("UserVotes").
		Where("room_id = ?", roomID).
		Order("queue_order ASC, created_at ASC").
		Find(&songs).Error
	if err != nil {
		return nil, err
	}
	return songs, nil
}

func (db *MySQLDB) FindSong(ctx context.Context, roomID, songID string) (*models.Song, error) {
	var song models.Song
	err := db.WithContext(ctx).
		Preload("UserVotes").
		First(&song, "id = ? AND room_id = ?", songID, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// SaveSong persists the song record and replaces its per-user vote set.
func (db *MySQLDB) SaveSong(ctx context.Context, song *models.Song) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(song).Error; err != nil {
			return err
		}
		if err := tx.Where("song_id = ?", song.ID).Delete(&models.SongVote{}).Error; err != nil {
			return err
		}
		if len(song.UserVotes) > 0 {
			if err := tx.Create(&song.UserVotes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *MySQLDB) DeleteSong(ctx context.Context, roomID, songID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&models.SongVote{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND room_id = ?", songID, roomID).Delete(&models.Song{}).Error
	})
}

// Chat operations

func (db *MySQLDB) SaveChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	return db.WithContext(ctx).Create(msg).Error
}

func (db *MySQLDB) RecentMessages(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// Oldest first for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
