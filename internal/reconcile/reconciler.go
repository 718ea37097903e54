// Package reconcile restores agreement between the cached book statuses
// and the ledger, and can seed corrective history.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"circulog/internal/catalog"
	"circulog/internal/metrics"
	"circulog/pkg/eventstore"
)

// Ledger is the slice of the event store the reconciler needs.
type Ledger interface {
	Append(ctx context.Context, e eventstore.Event) (int64, error)
	EventsForBook(ctx context.Context, bookID string) ([]eventstore.Event, error)
}

// BookStore is the slice of the catalog the reconciler needs.
type BookStore interface {
	List(ctx context.Context) ([]catalog.Book, error)
	SetStatus(ctx context.Context, id string, s catalog.Status) error
}

// Reconciler recomputes every book's status from the ledger and overwrites
// the cache. It runs to completion on explicit invocation only.
type Reconciler struct {
	ledger  Ledger
	books   BookStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures the reconciler.
type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler.
func New(ledger Ledger, books BookStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		ledger: ledger,
		books:  books,
		logger: slog.Default(),
		tracer: otel.Tracer("circulog/reconcile"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile derives each book's status from its latest event in date order
// (ties broken by ledger order; no events means Available) and overwrites
// the cached status unconditionally. Last-write-wins repair, not a merge:
// whatever the cache held before is discarded. Safe to run repeatedly.
//
// Note this "date-order latest event" rule is deliberately distinct from
// the replay engine's ledger-order fold; on out-of-order histories the two
// may disagree (status sync vs. loan-set reconstruction are different
// policies).
func (r *Reconciler) Reconcile(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "reconcile.run")
	defer span.End()

	books, err := r.books.List(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	repaired := 0
	for _, b := range books {
		events, err := r.ledger.EventsForBook(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("events for book %s: %w", b.ID, err)
		}

		status := catalog.StatusAvailable
		if latest, ok := latestByDate(events); ok && latest.Action == eventstore.ActionIssue {
			status = catalog.StatusIssued
		}

		if err := r.books.SetStatus(ctx, b.ID, status); err != nil {
			return fmt.Errorf("set status for book %s: %w", b.ID, err)
		}
		if status != b.Status {
			repaired++
			r.logger.Info("cached status repaired", "book_id", b.ID, "was", b.Status, "now", status)
		}
	}

	r.metrics.ReconcileCompleted(repaired)
	r.logger.Info("reconcile completed", "books", len(books), "repaired", repaired)
	span.SetAttributes(
		attribute.Int("books.checked", len(books)),
		attribute.Int("books.repaired", repaired),
	)
	return nil
}

// latestByDate picks the event with the greatest occurrence date, breaking
// ties by ledger order.
func latestByDate(events []eventstore.Event) (eventstore.Event, bool) {
	var latest eventstore.Event
	found := false
	for _, e := range events {
		if !found || e.OccurredOn.After(latest.OccurredOn) ||
			(e.OccurredOn.Equal(latest.OccurredOn) && e.ID > latest.ID) {
			latest = e
			found = true
		}
	}
	return latest, found
}

// SeedLoan is an operator-supplied corrective Issue. The Ref makes the
// injection idempotent: a ref already present in the ledger is skipped.
type SeedLoan struct {
	Ref      string `json:"ref"`
	BookID   string `json:"book_id"`
	MemberID string `json:"member_id"`
}

// Seed appends corrective Issue events dated today on behalf of an
// operator, strictly for data repair. Re-running with the same refs
// appends nothing.
func (r *Reconciler) Seed(ctx context.Context, loans []SeedLoan) error {
	ctx, span := r.tracer.Start(ctx, "reconcile.seed")
	defer span.End()

	injected := 0
	for _, l := range loans {
		if l.Ref == "" || l.BookID == "" {
			return fmt.Errorf("seed loan %+v: ref and book id are required", l)
		}

		_, err := r.ledger.Append(ctx, eventstore.Event{
			Ref:        l.Ref,
			BookID:     l.BookID,
			MemberID:   l.MemberID,
			Action:     eventstore.ActionIssue,
			OccurredOn: eventstore.Day(r.now()),
		})
		if errors.Is(err, eventstore.ErrDuplicateRef) {
			r.logger.Info("seed already applied", "ref", l.Ref)
			continue
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", l.Ref, err)
		}
		injected++
	}

	r.logger.Info("seed completed", "requested", len(loans), "injected", injected)
	span.SetAttributes(attribute.Int("seeds.injected", injected))
	return nil
}
