package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Engine owns per-room authoritative state. Every mutation of a room is
// funneled through that room's worker goroutine, so concurrent socket
// handlers can never interleave read-modify-write cycles on the same
// record. Rooms are fully independent; workers never talk to each other.
type Engine struct {
	store    Store
	cast     Broadcaster
	events   EventPublisher
	cache    RoomCache
	presence PresencePolicy
	log      *zap.Logger

	mu          sync.Mutex
	workers     map[string]*roomWorker
	idleTimeout time.Duration
	closed      bool
}

// workerIdleTimeout bounds how long a worker with no holders and no queued
// work survives. Workers are stateless executors, so retiring one at any
// quiet moment is safe; the next dispatch recreates it. Without this,
// dispatches against room ids that turn out not to exist would accumulate
// goroutines forever.
const workerIdleTimeout = time.Minute

func New(store Store, log *zap.Logger) *Engine {
	return &Engine{
		store:       store,
		cast:        nopBroadcaster{},
		events:      nopPublisher{},
		cache:       nopCache{},
		presence:    KeepMembership{},
		log:         log,
		workers:     make(map[string]*roomWorker),
		idleTimeout: workerIdleTimeout,
	}
}

// SetBroadcaster wires the fanout. Called once during startup, before any
// traffic; the hub needs the engine and the engine needs the hub.
func (e *Engine) SetBroadcaster(b Broadcaster) { e.cast = b }

func (e *Engine) SetEventPublisher(p EventPublisher) { e.events = p }

func (e *Engine) SetRoomCache(c RoomCache) { e.cache = c }

func (e *Engine) SetPresencePolicy(p PresencePolicy) { e.presence = p }

type roomWorker struct {
	tasks chan func()
	quit  chan struct{}
	refs  int // dispatches currently holding this worker; guarded by Engine.mu
}

func (e *Engine) runWorker(roomID string, w *roomWorker) {
	idle := time.NewTimer(e.idleTimeout)
	defer idle.Stop()
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-idle.C:
			if e.retireIfIdle(roomID, w) {
				return
			}
			idle.Reset(e.idleTimeout)
		case <-w.quit:
			// Drain accepted tasks so no dispatcher is left waiting.
			for {
				select {
				case task := <-w.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// workerFor hands out the room's worker and counts the caller as a holder;
// release undoes that. The count is what keeps retirement from racing a
// dispatch in flight.
func (e *Engine) workerFor(roomID string) *roomWorker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	w, ok := e.workers[roomID]
	if !ok {
		w = &roomWorker{
			tasks: make(chan func(), 64),
			quit:  make(chan struct{}),
		}
		e.workers[roomID] = w
		go e.runWorker(roomID, w)
	}
	w.refs++
	return w
}

func (e *Engine) release(w *roomWorker) {
	e.mu.Lock()
	w.refs--
	e.mu.Unlock()
}

// retireIfIdle removes a worker that has no holder and no queued work.
// Taken under the same lock as workerFor, so a dispatch either sees the
// worker before retirement (and blocks it via refs) or not at all.
func (e *Engine) retireIfIdle(roomID string, w *roomWorker) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w.refs > 0 || len(w.tasks) > 0 {
		return false
	}
	if e.workers[roomID] == w {
		delete(e.workers, roomID)
	}
	return true
}

// dispatch runs op on the room's worker and waits for it to finish. The
// context only bounds the wait for a free queue slot; once an op is
// accepted it always runs to completion (no cancellation mid-mutation).
// Ops against a missing or closed room fail fast inside openRoom.
func (e *Engine) dispatch(ctx context.Context, roomID string, op func() error) error {
	w := e.workerFor(roomID)
	if w == nil {
		return fmt.Errorf("%w: engine shut down", ErrNotFound)
	}
	defer e.release(w)
	errc := make(chan error, 1)
	task := func() { errc <- op() }
	select {
	case w.tasks <- task:
	case <-w.quit:
		return fmt.Errorf("%w: engine shut down", ErrNotFound)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-w.quit:
		// Shutdown while waiting; the drain pass still runs the op.
		select {
		case err := <-errc:
			return err
		case <-time.After(5 * time.Second):
			return fmt.Errorf("%w: engine shut down", ErrNotFound)
		}
	}
}

// Close stops all room workers. In-flight ops finish; queued ones are
// abandoned.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, w := range e.workers {
		close(w.quit)
		delete(e.workers, id)
	}
}

// openRoom loads a room and rejects missing or closed ones.
func (e *Engine) openRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := e.store.FindRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	if room == nil || room.IsClosed {
		return nil, fmt.Errorf("%w: room not found or closed", ErrNotFound)
	}
	return room, nil
}

// saveRoom persists the room, stamps LastUpdated upstream of callers, and
// keeps the snapshot cache in step. Cache failures only warn.
func (e *Engine) saveRoom(ctx context.Context, room *models.Room) error {
	if err := e.store.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	if err := e.cache.SetRoom(ctx, room); err != nil {
		e.log.Warn("room cache write failed", zap.String("room", room.ID.String()), zap.Error(err))
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, eventType, roomID, userID string, payload any) {
	if err := e.events.PublishRoomEvent(ctx, eventType, roomID, userID, payload); err != nil {
		e.log.Warn("event publish failed",
			zap.String("event", eventType),
			zap.String("room", roomID),
			zap.Error(err))
	}
}

func (e *Engine) now() time.Time { return time.Now().UTC() }
