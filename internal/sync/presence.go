package sync

import "context"

// PresencePolicy decides what an abrupt socket loss means for room
// membership. The backing store never learns about the disconnect beyond
// the cleared socket pointer unless the policy acts.
type PresencePolicy interface {
	OnDisconnect(ctx context.Context, e *Engine, roomID, userID string)
}

// KeepMembership keeps the member enrolled until an explicit leave or kick.
// Matches the reference behavior: only the live socket mapping is dropped.
type KeepMembership struct{}

func (KeepMembership) OnDisconnect(context.Context, *Engine, string, string) {}

// LeaveOnDisconnect treats a dropped socket as an explicit leave, host
// transfer and room closure included. Opt-in alternative policy.
type LeaveOnDisconnect struct{}

func (LeaveOnDisconnect) OnDisconnect(ctx context.Context, e *Engine, roomID, userID string) {
	_ = e.Leave(ctx, roomID, userID)
}
