package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalManager turns SIGINT/SIGTERM into context cancellation for the
// prompt loop.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignalManager starts listening on behalf of parent.
func NewSignalManager(parent context.Context) *SignalManager {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return &SignalManager{ctx: ctx, cancel: cancel}
}

// Context is cancelled on the first signal or when the parent ends.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Stop releases the signal handler.
func (sm *SignalManager) Stop() {
	sm.cancel()
}

// CheckRace waits briefly for a cancellation that may trail an input error.
// Some terminals deliver EOF on Ctrl+C just before the signal itself.
func (sm *SignalManager) CheckRace() {
	if sm.ctx.Err() != nil {
		return
	}
	select {
	case <-sm.ctx.Done():
	case <-time.After(100 * time.Millisecond):
	}
}
