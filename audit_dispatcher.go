package flasky

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands events to the sink from a single goroutine so that
// slow sinks never sit on the request path.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	queue      chan AuditEvent

	stop     context.CancelFunc
	stopped  context.Context
	finished sync.WaitGroup
	once     sync.Once
	dropped  atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	stopped, stop := context.WithCancel(context.Background())
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		stop:       stop,
		stopped:    stopped,
	}

	d.finished.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.finished.Done()

	ctx := context.Background()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		case <-d.stopped.Done():
			d.drain(ctx)
			return
		}
	}
}

// drain delivers whatever is still queued after Close.
func (d *auditDispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event and
// counts it; otherwise Emit blocks until there is room or ctx ends.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopped.Err() != nil {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stopped.Done():
		default:
			d.dropped.Add(1)
		}
		return
	}

	var caller <-chan struct{}
	if ctx != nil {
		caller = ctx.Done()
	}
	select {
	case d.queue <- event:
	case <-caller:
	case <-d.stopped.Done():
	}
}

// Close stops accepting events, flushes the queue and waits for the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.stop()
		d.finished.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
