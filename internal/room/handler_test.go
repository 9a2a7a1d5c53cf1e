package room

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	roomsync "github.com/AyushDwivedi1230000/Music-Rooms/internal/sync"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

type presenceRecorder struct {
	mu    sync.Mutex
	calls [][2]string
}

func (p *presenceRecorder) RemoveUser(roomID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [2]string{roomID, userID})
}

func newTestRouter(h *Handler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	h.RegisterRoutes(r.Group("/"))
	return r
}

func TestGetRoomRoute(t *testing.T) {
	db := newFakeDB()
	cache := newFakeCache()
	room := seedFakeRoom(db, uuid.New())
	svc := NewService(db, cache, nil, zap.NewNop())
	h := NewHandler(svc, nil, nil)
	router := newTestRouter(h, uuid.NewString())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/"+room.ID.String(), nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/rooms/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status for missing room = %d, want 404", w.Code)
	}
}

func TestLeaveRouteUnsubscribesSocket(t *testing.T) {
	db := newFakeDB()
	hostID := uuid.New()
	db.users[hostID.String()] = &models.User{ID: hostID, Username: "host", IsGuest: true}
	room := seedFakeRoom(db, hostID)

	engine := roomsync.New(db, zap.NewNop())
	defer engine.Close()
	rec := &presenceRecorder{}
	h := NewHandler(nil, engine, rec)
	router := newTestRouter(h, hostID.String())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rooms/"+room.ID.String()+"/leave", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 1 || rec.calls[0] != [2]string{room.ID.String(), hostID.String()} {
		t.Fatalf("presence calls = %v, want one removal for (%s, %s)", rec.calls, room.ID, hostID)
	}
}
