// Package services orchestrates the finance, recurrence and loan engines
// over the store. Every mutation reads the current collections, applies a
// pure transition and writes the result back inside one store.Repository
// Update, which the backends make atomic across processes. Events, metrics
// and cache invalidation follow a successful update.
package services

import (
	"context"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ids"
	"fintrack/internal/metrics"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventLoanPaymentApplied = "loan.payment_applied"
	EventRecurringDue       = "recurring.due"
)

// EventPublisher announces completed mutations to other processes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, id string, payload any) error
}

type deps struct {
	ids       ids.Generator
	now       func() time.Time
	location  *time.Location
	publisher EventPublisher
	metrics   *metrics.Metrics
}

// Option configures a service.
type Option func(*deps)

func WithIDs(gen ids.Generator) Option {
	return func(d *deps) { d.ids = gen }
}

func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithLocation sets the timezone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(d *deps) {
		if loc != nil {
			d.location = loc
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(d *deps) { d.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

func newDeps(opts []Option) deps {
	d := deps{
		ids:      ids.UUID{},
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d deps) today() core.Date {
	return core.DateOf(d.now().In(d.location))
}

// publish never fails the caller: the mutation is already stored.
func (d deps) publish(ctx context.Context, eventType, id string, payload any) {
	if d.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "event", eventType, "id", id)
		return
	}
	if err := d.publisher.PublishEvent(ctx, eventType, id, payload); err != nil {
		d.metrics.IncrPublishError(eventType)
		slog.ErrorContext(ctx, "Failed to publish event",
			"event", eventType, "id", id, "error", err)
	}
}
