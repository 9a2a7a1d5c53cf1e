package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

const maxMessageLen = 1000

// PostMessage validates, persists and fans out a chat message to the whole
// room, sender included. Join/leave notices are synthesized on the client
// and deliberately never stored as chat records.
func (e *Engine) PostMessage(ctx context.Context, roomID, userID, username, text string) (*MessageView, error) {
	var view *MessageView
	err := e.dispatch(ctx, roomID, func() error {
		room, err := e.openRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if _, ok := MemberRole(room, userID); !ok {
			return fmt.Errorf("%w: not a member", ErrPermissionDenied)
		}

		trimmed := strings.TrimSpace(text)
		if runes := []rune(trimmed); len(runes) > maxMessageLen {
			trimmed = string(runes[:maxMessageLen])
		}
		if trimmed == "" {
			return fmt.Errorf("%w: message cannot be empty", ErrInvalidPayload)
		}

		uid, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("%w: bad user id", ErrInvalidPayload)
		}
		msg := &models.ChatMessage{
			ID:        uuid.New(),
			RoomID:    room.ID,
			UserID:    &uid,
			Username:  username,
			Message:   trimmed,
			CreatedAt: e.now(),
		}
		if err := e.store.SaveChatMessage(ctx, msg); err != nil {
			return fmt.Errorf("save message: %w", err)
		}

		view = &MessageView{
			ID:        msg.ID.String(),
			UserID:    &userID,
			Username:  msg.Username,
			Message:   msg.Message,
			IsSystem:  false,
			CreatedAt: msg.CreatedAt,
		}
		e.cast.ToRoom(roomID, EventChatMessage, view)
		e.publish(ctx, EventChatMessage, roomID, userID, view)
		return nil
	})
	return view, err
}
