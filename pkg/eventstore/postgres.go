package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Schema creates the events table. Append order is materialized by the
// BIGSERIAL id; the unique ref index backs corrective-seed deduplication.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	ref TEXT NOT NULL UNIQUE,
	book_id TEXT NOT NULL,
	member_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	occurred_on DATE NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS events_book_id_idx ON events (book_id);
CREATE INDEX IF NOT EXISTS events_member_id_idx ON events (member_id);
`

const tableEvents = "events"

var eventColumns = []interface{}{"id", "ref", "book_id", "member_id", "action", "occurred_on", "recorded_at"}

// Postgres is the durable ledger implementation.
type Postgres struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgres creates a ledger backed by the given database.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:     db,
		tracer: otel.Tracer("circulog/eventstore"),
	}
}

// Append records a single event and returns its assigned identity. Content
// is never rejected; only storage failures and duplicate references error.
func (p *Postgres) Append(ctx context.Context, e Event) (int64, error) {
	ctx, span := p.tracer.Start(ctx, "ledger.append",
		trace.WithAttributes(
			attribute.String("event.ref", e.Ref),
			attribute.String("event.book_id", e.BookID),
			attribute.String("event.action", string(e.Action)),
		),
	)
	defer span.End()

	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO events (ref, book_id, member_id, action, occurred_on, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.Ref, e.BookID, e.MemberID, string(e.Action), Day(e.OccurredOn), time.Now().UTC()).Scan(&id)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			span.SetAttributes(attribute.Bool("duplicate.detected", true))
			return 0, fmt.Errorf("ref %q: %w", e.Ref, ErrDuplicateRef)
		}
		return 0, fmt.Errorf("append event: %w: %v", ErrStorage, err)
	}

	span.SetAttributes(attribute.Int64("event.id", id))
	return id, nil
}

// AllEvents returns the full history in append order.
func (p *Postgres) AllEvents(ctx context.Context) ([]Event, error) {
	return p.query(ctx, "ledger.all_events", nil)
}

// EventsForBook returns the ordered sub-sequence of events for one book.
func (p *Postgres) EventsForBook(ctx context.Context, bookID string) ([]Event, error) {
	return p.query(ctx, "ledger.events_for_book", goqu.Ex{"book_id": bookID})
}

// EventsForMember returns the ordered sub-sequence of events attributed to
// one member. Unattributed returns never match.
func (p *Postgres) EventsForMember(ctx context.Context, memberID string) ([]Event, error) {
	return p.query(ctx, "ledger.events_for_member", goqu.Ex{"member_id": memberID})
}

func (p *Postgres) query(ctx context.Context, spanName string, where goqu.Ex) ([]Event, error) {
	ctx, span := p.tracer.Start(ctx, spanName)
	defer span.End()

	stmt := goqu.Dialect("postgres").
		From(tableEvents).
		Select(eventColumns...).
		Order(goqu.I("id").Asc())
	if where != nil {
		stmt = stmt.Where(where)
	}

	query, args, err := stmt.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &e.Ref, &e.BookID, &e.MemberID, &action, &e.OccurredOn, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w: %v", ErrStorage, err)
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w: %v", ErrStorage, err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
