package service

import (
	"context"
	"log"
	"sync"
)

// Event names emitted by the services.
const (
	EventViewUpdated   = "view:updated"
	EventViewDeleted   = "view:deleted"
	EventExportRunning = "export:running"
	EventExportDone    = "export:completed"
)

// EventEmitter lets services notify whichever front end is attached (the
// MCP server, the shell) without importing it.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to the standard logger.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event string, data any) {
	log.Printf("[EVENT] %s %v", event, data)
}

// MockEmitter records emissions for test assertions. Exports emit from
// cron and watcher goroutines, so it is safe for concurrent use.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded events with the given name.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
