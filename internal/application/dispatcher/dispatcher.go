package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/expenseflow/internal/domain/event"
)

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher routes expense events to registered handlers
type Dispatcher interface {
	// SubscribeNamed registers a handler under a name used in logs
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers one handler for several event types
	SubscribeAll(eventTypes []event.Type, name string, handler Handler)

	// Dispatch runs every handler for the event in registration order.
	// A failing handler does not stop the others; all errors are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs the handlers in the background. Events of one
	// expense are delivered in dispatch order; different expenses run in parallel.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Handlers returns the names of the handlers registered for an event type
	Handlers(eventType event.Type) []string

	// Close waits for background handlers and rejects further dispatches
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	// queueMu guards queues and closed; wg.Add only happens under it
	queueMu sync.Mutex
	queues  map[int64][]asyncJob
	closed  bool
	wg      sync.WaitGroup
}

type asyncJob struct {
	ctx context.Context
	evt *event.Event
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		queues:   make(map[int64][]asyncJob),
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})
	d.mu.Unlock()

	d.logger.Info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) SubscribeAll(eventTypes []event.Type, name string, handler Handler) {
	for _, t := range eventTypes {
		d.SubscribeNamed(t, name, handler)
	}
}

func (d *eventDispatcher) snapshot(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

func (d *eventDispatcher) isClosed() bool {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return d.closed
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.isClosed() {
		return ErrClosed
	}
	return d.run(ctx, evt)
}

func (d *eventDispatcher) run(ctx context.Context, evt *event.Event) error {
	handlers := d.snapshot(evt.Type)
	d.logger.Info("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"expense_id", evt.ExpenseID,
		"handler_count", len(handlers),
	)

	var errs []error
	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.logger.Error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("handler %s failed: %w", info.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.queueMu.Lock()
	if d.closed {
		d.queueMu.Unlock()
		d.logger.Error("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}

	pending, draining := d.queues[evt.ExpenseID]
	d.queues[evt.ExpenseID] = append(pending, asyncJob{ctx: context.WithoutCancel(ctx), evt: evt})
	if !draining {
		d.wg.Add(1)
		go d.drain(evt.ExpenseID)
	}
	d.queueMu.Unlock()
}

// drain delivers the queued events of one expense one at a time and exits
// once the queue is empty
func (d *eventDispatcher) drain(expenseID int64) {
	defer d.wg.Done()
	for {
		d.queueMu.Lock()
		pending := d.queues[expenseID]
		if len(pending) == 0 {
			delete(d.queues, expenseID)
			d.queueMu.Unlock()
			return
		}
		job := pending[0]
		d.queues[expenseID] = pending[1:]
		d.queueMu.Unlock()

		// handler errors are logged by run
		_ = d.run(job.ctx, job.evt)
	}
}

func (d *eventDispatcher) Handlers(eventType event.Type) []string {
	handlers := d.snapshot(eventType)
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.Name
	}
	return names
}

func (d *eventDispatcher) Close() error {
	d.queueMu.Lock()
	if d.closed {
		d.queueMu.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.queueMu.Unlock()

	d.logger.Info("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return info.Handler(ctx, evt)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
