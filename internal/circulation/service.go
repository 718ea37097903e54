package circulation

import "context"

// Service is the narrow command/query interface the presentation layer
// calls. Nothing outside this package reads the ledger or the cached book
// status directly.
type Service interface {
	// Issue lends a book to a member, appending an Issue event dated today.
	// It returns a human-readable confirmation message.
	Issue(ctx context.Context, bookID, memberID string) (string, error)

	// Return takes a book back, appending a Return event without member
	// attribution.
	Return(ctx context.Context, bookID string) (string, error)

	// ActiveLoans lists open loans, for one member when memberID is
	// non-empty or globally otherwise.
	ActiveLoans(ctx context.Context, memberID string) ([]Loan, error)

	// History lists enriched ledger events, newest first, scoped to one
	// member when memberID is non-empty.
	History(ctx context.Context, memberID string) ([]HistoryEntry, error)
}
