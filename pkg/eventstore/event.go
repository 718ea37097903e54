// Package eventstore provides the circulation ledger: an append-only,
// totally ordered log of issue/return events. The ledger is the single
// source of truth for custody history; cached book statuses are a
// projection derived from it.
package eventstore

import (
	"errors"
	"time"
)

// Action is the kind of circulation event recorded in the ledger.
type Action string

const (
	ActionIssue  Action = "Issue"
	ActionReturn Action = "Return"
)

var (
	// ErrStorage signals a durability failure on append or read.
	ErrStorage = errors.New("ledger storage failure")

	// ErrDuplicateRef is returned when an event with the same reference was
	// already recorded. Corrective seeding relies on this to stay idempotent.
	ErrDuplicateRef = errors.New("event reference already recorded")
)

// Event is one immutable entry in the ledger. Entries are never updated or
// deleted; corrections are new entries.
//
// ID is assigned at append time, unique and strictly increasing. Ref is a
// caller-supplied unique reference (defaulted to a UUID by the command
// layer). MemberID is empty for returns without member attribution.
// OccurredOn carries calendar-day precision only.
type Event struct {
	ID         int64     `json:"id" db:"id"`
	Ref        string    `json:"ref" db:"ref"`
	BookID     string    `json:"book_id" db:"book_id"`
	MemberID   string    `json:"member_id,omitempty" db:"member_id"`
	Action     Action    `json:"action" db:"action"`
	OccurredOn time.Time `json:"occurred_on" db:"occurred_on"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// Day truncates t to calendar-day precision in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
