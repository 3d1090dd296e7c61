// Package publisher delivers audit events to a store, optionally through an
// async buffer so hot paths (donation recording) never block on audit I/O.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "reliefhub/pkg/domain"
	audit "reliefhub/pkg/platform/audit"
	"reliefhub/pkg/requestcontext"
)

// Store is the persistence sink for audit events.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

// Publisher emits audit events. With no options it writes synchronously;
// WithAsyncBuffer switches to a buffered channel drained by one worker.
type Publisher struct {
	store  Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with the given buffer size.
// When the buffer is full events are dropped and logged rather than blocking
// the emitting request.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for delivery failures and drops.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a Publisher backed by the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event, stamping category and timestamp when the
// caller left them unset. In async mode a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
		return nil
	}
}

// List returns the audit trail for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close drains any buffered events and stops the worker. Safe to call
// multiple times.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.once.Do(func() {
		close(p.buffer)
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
