// Package circulation is the command and query core: it validates
// issue/return actions against the replayed ledger state, appends events,
// and derives active loans and history views.
package circulation

import (
	"time"

	"circulog/pkg/eventstore"
)

// LoanPeriodDays is the policy threshold. A loan held for more than this
// many calendar days is overdue.
const LoanPeriodDays = 14

// Display fallbacks for history rows whose book or member no longer
// resolves. A missing lookup is never an error.
const (
	unknownTitleLabel  = "Unknown"
	libraryMemberLabel = "Library"
)

// Loan is a derived view of an open loan. It has no stored lifecycle; it
// exists only as replay output.
type Loan struct {
	BookID   string    `json:"book_id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	MemberID string    `json:"member_id"`
	IssuedOn time.Time `json:"issued_on"`
	DaysHeld int       `json:"days_held"`
	Overdue  bool      `json:"overdue"`
}

// HistoryEntry is one ledger event enriched with display fields. Only
// Issue entries carry DaysAgo/Overdue; a Return is never overdue.
type HistoryEntry struct {
	EventID    int64             `json:"event_id"`
	BookID     string            `json:"book_id"`
	Title      string            `json:"title"`
	MemberID   string            `json:"member_id,omitempty"`
	MemberName string            `json:"member_name"`
	Action     eventstore.Action `json:"action"`
	Date       time.Time         `json:"date"`
	DaysAgo    int               `json:"days_ago"`
	Overdue    bool              `json:"overdue"`
}
