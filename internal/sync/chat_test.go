package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPostMessageBroadcastsToWholeRoom(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	l1 := seedUser(store, "l1")
	room := seedRoom(store, hostID, l1)

	e, rec := newTestEngine(store)
	defer e.Close()

	view, err := e.PostMessage(context.Background(), room.ID.String(), l1, "ada", "  hello room  ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if view.Message != "hello room" {
		t.Fatalf("message = %q, want trimmed", view.Message)
	}
	if view.Username != "ada" || view.IsSystem {
		t.Fatalf("view = %+v, want sender attribution and no system flag", view)
	}

	sent := rec.byEvent(EventChatMessage)
	if len(sent) != 1 || sent[0].kind != "room" {
		t.Fatalf("expected one chat_message to the whole room (sender included), got %+v", sent)
	}

	if len(store.chats) != 1 || store.chats[0].Message != "hello room" {
		t.Fatalf("persisted chats = %+v, want the one trimmed message", store.chats)
	}
}

func TestPostMessageTruncatesLongText(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	e, _ := newTestEngine(store)
	defer e.Close()

	long := strings.Repeat("ü", maxMessageLen+50)
	view, err := e.PostMessage(context.Background(), room.ID.String(), hostID, "host", long)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if got := len([]rune(view.Message)); got != maxMessageLen {
		t.Fatalf("message runes = %d, want %d", got, maxMessageLen)
	}
}

func TestPostMessageRejectsEmpty(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	room := seedRoom(store, hostID)
	e, _ := newTestEngine(store)
	defer e.Close()

	if _, err := e.PostMessage(context.Background(), room.ID.String(), hostID, "host", "   \t  "); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("whitespace-only message should be invalid, got %v", err)
	}
}

func TestPostMessageRequiresMembership(t *testing.T) {
	store := newMemStore()
	hostID := seedUser(store, "host")
	outsider := seedUser(store, "outsider")
	room := seedRoom(store, hostID)
	e, _ := newTestEngine(store)
	defer e.Close()

	if _, err := e.PostMessage(context.Background(), room.ID.String(), outsider, "x", "hi"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-member chat should be denied, got %v", err)
	}
}
