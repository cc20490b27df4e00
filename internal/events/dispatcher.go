package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the async dispatcher cannot accept more events.
	ErrQueueFull = errors.New("event queue full")
	// ErrDispatcherClosed is returned when publishing after Close.
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) handlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[eventType]...)
}

// deliver invokes every handler; one failing handler does not stop the rest.
func (r *registry) deliver(ctx context.Context, logger *zap.Logger, event Event) {
	for _, handler := range r.handlers(event.Type) {
		if err := handler(ctx, event); err != nil {
			logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
	logger *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher that runs handlers on the publishing goroutine.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	return &inMemoryDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.deliver(ctx, d.logger, event)
	return nil
}

// AsyncDispatcher queues events and delivers them from a fixed pool of workers,
// detached from the publisher's context.
type AsyncDispatcher struct {
	registry
	logger *zap.Logger
	queue  chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher starts workers goroutines draining a queue of queueSize events.
func NewAsyncDispatcher(logger *zap.Logger, workers, queueSize int) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &AsyncDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
		queue:    make(chan Event, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(context.Background(), d.logger, event)
	}
}

// Publish enqueues the event without waiting for handlers. It never blocks.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered or ctx to end.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
