package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Flush once the dispatcher has shut down.
var ErrClosed = errors.New("audit: dispatcher closed")

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of stalling the flow operation
	// that produced them.
	DropIfFull bool
}

// envelope is either one event or a flush marker. Markers travel the same
// queue so a flush observes every event enqueued before it.
type envelope struct {
	event   Event
	flushed chan struct{}
}

// Dispatcher forwards flow events to a sink from a single goroutine, so a
// sink never sees two events of one client out of order.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	queue     chan envelope
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	now       func() time.Time

	dropped  atomic.Uint64
	dropMu   sync.Mutex
	dropType map[string]uint64
}

// NewDispatcher returns nil when audit is disabled. Every method is safe on
// a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		queue:    make(chan envelope, cfg.BufferSize),
		done:     make(chan struct{}),
		now:      time.Now,
		dropType: make(map[string]uint64),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case env := <-d.queue:
			d.deliver(env)
		case <-d.done:
			for {
				select {
				case env := <-d.queue:
					d.deliver(env)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(env envelope) {
	if env.flushed != nil {
		close(env.flushed)
		return
	}
	d.sink.Emit(context.Background(), env.event)
}

// Emit queues event, stamping it with the current UTC time when it carries
// none. With DropIfFull a full buffer counts the event as dropped under its
// type; otherwise Emit waits for room or for ctx.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
	env := envelope{event: event}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- env:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- env:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.dropType[eventType]++
	d.dropMu.Unlock()
}

// Flush blocks until every event emitted before the call has reached the
// sink. A controller flushes on Close so an evicted client's last events
// are not left behind in a shared buffer.
func (d *Dispatcher) Flush(ctx context.Context) error {
	if d == nil {
		return nil
	}
	if d.closed.Load() {
		return ErrClosed
	}
	marker := make(chan struct{})
	select {
	case d.queue <- envelope{flushed: marker}:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrClosed
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued events and stops the dispatcher goroutine.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	out := make(map[string]uint64, len(d.dropType))
	for k, v := range d.dropType {
		out[k] = v
	}
	return out
}
