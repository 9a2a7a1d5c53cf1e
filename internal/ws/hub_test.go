package ws

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(userID string) *client {
	return &client{
		connID: "conn-" + userID,
		userID: userID,
		send:   make(chan []byte, 8),
	}
}

func recv(t *testing.T, c *client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return env
	default:
		t.Fatal("no frame queued")
		return Envelope{}
	}
}

func expectEmpty(t *testing.T, c *client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected frame: %s", frame)
	default:
	}
}

func TestHubFanout(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := newTestClient("a")
	b := newTestClient("b")
	c := newTestClient("c")
	for _, cl := range []*client{a, b, c} {
		hub.register(cl)
	}
	hub.joinRoom("r1", a)
	hub.joinRoom("r1", b)
	hub.joinRoom("r2", c)

	hub.ToRoom("r1", "chat_message", map[string]any{"message": "hi"})
	if env := recv(t, a); env.Type != "chat_message" {
		t.Fatalf("a got %q, want chat_message", env.Type)
	}
	recv(t, b)
	expectEmpty(t, c)

	hub.ToOthers("r1", "a", "user_joined", map[string]any{"userId": "b"})
	expectEmpty(t, a)
	recv(t, b)

	hub.ToUser("c", "kicked_from_room", map[string]any{"roomId": "r2"})
	if env := recv(t, c); env.Type != "kicked_from_room" {
		t.Fatalf("c got %q, want kicked_from_room", env.Type)
	}
}

func TestHubJoinMovesBetweenRooms(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := newTestClient("a")
	hub.register(a)
	hub.joinRoom("r1", a)
	hub.joinRoom("r2", a)

	hub.ToRoom("r1", "chat_message", nil)
	expectEmpty(t, a)
	hub.ToRoom("r2", "chat_message", nil)
	recv(t, a)

	if got := hub.roomOf(a); got != "r2" {
		t.Fatalf("roomOf = %q, want r2", got)
	}
}

func TestHubRemoveUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := newTestClient("a")
	hub.register(a)
	hub.joinRoom("r1", a)

	hub.RemoveUser("r1", "a")
	hub.ToRoom("r1", "chat_message", nil)
	expectEmpty(t, a)

	// Direct sends still reach the connection after a kick.
	hub.ToUser("a", "kicked_from_room", nil)
	recv(t, a)
}

func TestSlowClientFramesDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := &client{userID: "a", send: make(chan []byte, 1)}
	hub.register(a)
	hub.joinRoom("r1", a)

	hub.ToRoom("r1", "queue_list", nil)
	hub.ToRoom("r1", "queue_list", nil) // buffer full, dropped

	recv(t, a)
	expectEmpty(t, a)
}
