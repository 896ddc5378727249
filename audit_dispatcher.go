package rotauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples the hot rotate path from sink latency. Events go
// through a bounded buffer to a single delivery goroutine; when the buffer is
// full the event is either dropped and counted or, with DropIfFull off,
// Emit blocks until there is room.
type auditDispatcher struct {
	sink       AuditSink
	buf        chan AuditEvent
	quit       chan struct{}
	dropIfFull bool

	dropped  atomic.Uint64
	stopping atomic.Bool
	stop     sync.Once
	gone     sync.WaitGroup
}

// newAuditDispatcher returns nil when auditing is disabled; a nil dispatcher
// is a valid no-op receiver for Emit, Close, and Dropped.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		buf:        make(chan AuditEvent, size),
		quit:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	d.gone.Add(1)
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer d.gone.Done()
	for {
		select {
		case ev := <-d.buf:
			d.sink.Emit(context.Background(), ev)
		case <-d.quit:
			d.flush()
			return
		}
	}
}

// flush empties whatever the buffer still holds at shutdown.
func (d *auditDispatcher) flush() {
	for {
		select {
		case ev := <-d.buf:
			d.sink.Emit(context.Background(), ev)
		default:
			return
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopping.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.buf <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.buf <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops intake, delivers everything already buffered, and waits for the
// delivery goroutine to exit.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stop.Do(func() {
		d.stopping.Store(true)
		close(d.quit)
		d.gone.Wait()
	})
}

// Dropped reports events discarded because the buffer was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
