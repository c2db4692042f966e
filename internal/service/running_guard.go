package service

import (
	"context"
	"sync"
)

// JobGuard is exported so _test packages can exercise it directly.
type JobGuard = jobGuard

// jobGuard keeps a job from running twice at once: a cron tick and a file
// change can both fire while the previous export is still writing.
type jobGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks jobID as running. It reports false if it already is.
func (g *jobGuard) TryLock(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[jobID]; busy {
		return false
	}
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	g.running[jobID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases a job acquired with TryLock.
func (g *jobGuard) Unlock(jobID string) {
	g.mu.Lock()
	delete(g.running, jobID)
	g.mu.Unlock()
	g.wg.Done()
}

// Running reports whether jobID currently holds the guard.
func (g *jobGuard) Running(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[jobID]
	return busy
}

// Wait blocks until no job is running or ctx is done.
func (g *jobGuard) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
