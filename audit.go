package rotauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent is one security-relevant occurrence. Replay detections carry the
// full user/family/jti triple; this log is the only place rejection detail is
// recorded.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Family    string            `json:"family,omitempty"`
	JTI       string            `json:"jti,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the engine's async dispatcher. Emit must be
// safe for concurrent use and should return promptly; a slow sink backs up
// the dispatcher buffer.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards everything. Used when auditing is enabled with no sink.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink hands events to an in-process consumer. If the consumer falls
// behind, Emit blocks until the context is cancelled.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Events is the receive side for the consumer goroutine.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// JSONWriterSink appends one JSON object per line to w. Lines are written
// whole under a mutex, so interleaving sinks on the same writer is safe.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return nil
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}
	s.mu.Lock()
	// Encode appends the trailing newline itself.
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

// MultiSink fans one event out to every wrapped sink in order.
type MultiSink struct {
	sinks []AuditSink
}

func NewMultiSink(sinks ...AuditSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range s.sinks {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
