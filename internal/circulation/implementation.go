package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"circulog/internal/catalog"
	"circulog/internal/membership"
	"circulog/internal/metrics"
	"circulog/pkg/eventstore"
)

// Ledger is the slice of the event store this service needs.
type Ledger interface {
	Append(ctx context.Context, e eventstore.Event) (int64, error)
	AllEvents(ctx context.Context) ([]eventstore.Event, error)
	EventsForMember(ctx context.Context, memberID string) ([]eventstore.Event, error)
}

// BookStore is the slice of the catalog this service needs. The cached
// status is written here but never trusted for validation.
type BookStore interface {
	List(ctx context.Context) ([]catalog.Book, error)
	SetStatus(ctx context.Context, id string, s catalog.Status) error
	Exists(ctx context.Context, id string) (bool, error)
}

// MemberStore is the read-only slice of membership this service needs.
type MemberStore interface {
	List(ctx context.Context) ([]membership.Member, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// service implements the Service interface.
type service struct {
	mu      sync.Mutex
	ledger  Ledger
	books   BookStore
	members MemberStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures the service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithClock overrides the time source. Tests use it to pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new circulation service instance.
func NewService(ledger Ledger, books BookStore, members MemberStore, opts ...Option) Service {
	s := &service{
		ledger:  ledger,
		books:   books,
		members: members,
		logger:  slog.Default(),
		tracer:  otel.Tracer("circulog/circulation"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue validates against the replayed projection, appends an Issue event,
// then flips the cached status. The whole read-validate-append-update
// sequence runs under one lock so two concurrent callers cannot both
// observe "Available" and double-issue.
func (s *service) Issue(ctx context.Context, bookID, memberID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.issue",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("member.id", memberID),
		),
	)
	defer span.End()

	if bookID == "" || memberID == "" {
		s.metrics.CommandRejected("validation")
		return "", fmt.Errorf("book and member ids are required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, err := s.books.Exists(ctx, bookID); err != nil {
		return "", fmt.Errorf("check book: %w", err)
	} else if !ok {
		s.metrics.CommandRejected("book_not_found")
		return "", fmt.Errorf("book %s: %w", bookID, ErrNotFound)
	}
	if ok, err := s.members.Exists(ctx, memberID); err != nil {
		return "", fmt.Errorf("check member: %w", err)
	} else if !ok {
		s.metrics.CommandRejected("member_not_found")
		return "", fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}

	events, err := s.ledger.AllEvents(ctx)
	if err != nil {
		return "", fmt.Errorf("load ledger: %w", err)
	}
	if hasOpenLoan(events, bookID) {
		s.metrics.CommandRejected("already_issued")
		return "", fmt.Errorf("book %s is already issued: %w", bookID, ErrInvalidTransition)
	}

	id, err := s.ledger.Append(ctx, eventstore.Event{
		Ref:        uuid.NewString(),
		BookID:     bookID,
		MemberID:   memberID,
		Action:     eventstore.ActionIssue,
		OccurredOn: eventstore.Day(s.now()),
	})
	if err != nil {
		return "", fmt.Errorf("append issue event: %w", err)
	}

	// Append-then-update: if this write fails the ledger already holds the
	// event and a later reconciliation repairs the cache.
	if err := s.books.SetStatus(ctx, bookID, catalog.StatusIssued); err != nil {
		return "", fmt.Errorf("update cached status: %w", err)
	}

	s.logger.Info("book issued", "book_id", bookID, "member_id", memberID, "event_id", id)
	s.metrics.IssueRecorded()
	return fmt.Sprintf("Book %s issued to %s successfully.", bookID, memberID), nil
}

// Return validates that the projection shows an open loan and appends a
// Return event with no member attribution; whoever hands the book over is
// not required to identify themselves.
func (s *service) Return(ctx context.Context, bookID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("book.id", bookID)),
	)
	defer span.End()

	if bookID == "" {
		s.metrics.CommandRejected("validation")
		return "", fmt.Errorf("book id is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, err := s.books.Exists(ctx, bookID); err != nil {
		return "", fmt.Errorf("check book: %w", err)
	} else if !ok {
		s.metrics.CommandRejected("book_not_found")
		return "", fmt.Errorf("book %s: %w", bookID, ErrNotFound)
	}

	events, err := s.ledger.AllEvents(ctx)
	if err != nil {
		return "", fmt.Errorf("load ledger: %w", err)
	}
	if !hasOpenLoan(events, bookID) {
		s.metrics.CommandRejected("already_available")
		return "", fmt.Errorf("book %s is already available: %w", bookID, ErrInvalidTransition)
	}

	id, err := s.ledger.Append(ctx, eventstore.Event{
		Ref:        uuid.NewString(),
		BookID:     bookID,
		Action:     eventstore.ActionReturn,
		OccurredOn: eventstore.Day(s.now()),
	})
	if err != nil {
		return "", fmt.Errorf("append return event: %w", err)
	}

	if err := s.books.SetStatus(ctx, bookID, catalog.StatusAvailable); err != nil {
		return "", fmt.Errorf("update cached status: %w", err)
	}

	s.logger.Info("book returned", "book_id", bookID, "event_id", id)
	s.metrics.ReturnRecorded()
	return fmt.Sprintf("Book %s returned successfully.", bookID), nil
}

// ActiveLoans folds the full ledger into the open-loan set, then filters
// by member when requested. Correctness never depends on the cached book
// status.
func (s *service) ActiveLoans(ctx context.Context, memberID string) ([]Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.active_loans")
	defer span.End()

	events, err := s.ledger.AllEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	start := time.Now()
	open := foldOpenLoans(events)
	s.metrics.ObserveReplay(start)

	idx, err := s.displayIndex(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loans := make([]Loan, 0, len(open))
	for _, l := range open {
		if memberID != "" && l.MemberID != memberID {
			continue
		}
		days, overdue := overdueAfter(l.IssuedOn, now)
		loans = append(loans, Loan{
			BookID:   l.BookID,
			Title:    idx.title(l.BookID),
			Author:   idx.authors[l.BookID],
			MemberID: l.MemberID,
			IssuedOn: l.IssuedOn,
			DaysHeld: days,
			Overdue:  overdue,
		})
	}

	span.SetAttributes(attribute.Int("loans.active", len(loans)))
	return loans, nil
}

// History returns the enriched event log, newest first. Member scope
// covers events attributed to that member; unattributed returns only show
// up globally.
func (s *service) History(ctx context.Context, memberID string) ([]HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.history")
	defer span.End()

	var events []eventstore.Event
	var err error
	if memberID == "" {
		events, err = s.ledger.AllEvents(ctx)
	} else {
		events, err = s.ledger.EventsForMember(ctx, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	idx, err := s.displayIndex(ctx)
	if err != nil {
		return nil, err
	}

	entries := buildHistory(events, idx, s.now(), memberID != "")
	span.SetAttributes(attribute.Int("history.entries", len(entries)))
	return entries, nil
}

func (s *service) displayIndex(ctx context.Context) (displayIndex, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return displayIndex{}, fmt.Errorf("list books: %w", err)
	}
	members, err := s.members.List(ctx)
	if err != nil {
		return displayIndex{}, fmt.Errorf("list members: %w", err)
	}

	idx := displayIndex{
		titles:  make(map[string]string, len(books)),
		authors: make(map[string]string, len(books)),
		names:   make(map[string]string, len(members)),
	}
	for _, b := range books {
		idx.titles[b.ID] = b.Title
		idx.authors[b.ID] = b.Author
	}
	for _, m := range members {
		idx.names[m.ID] = m.Name
	}
	return idx, nil
}
