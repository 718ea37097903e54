package circulation

import (
	"sort"
	"time"

	"circulog/pkg/eventstore"
)

// The replay engine below is pure: no I/O, no clocks beyond the supplied
// "now", deterministic for any fixed event sequence. State is always
// derived by folding the ledger, never read from the cached book status.

// openLoan is the surviving Issue for a book after a fold.
type openLoan struct {
	BookID   string
	MemberID string
	IssuedOn time.Time
	EventID  int64
}

// foldOpenLoans replays events in ledger order and returns the open loans,
// sorted by issue event identity.
//
// Ledger order, not date order, is the authoritative sequencing: it
// reflects causal arrival, while the date is a display/overdue attribute.
// Two tolerance policies apply to malformed or replayed history:
//   - an Issue overwrites any prior open loan for the same book (last
//     Issue wins), which absorbs repair injections that issue a book
//     without an explicit preceding return;
//   - a Return with no matching open loan is a no-op, which absorbs
//     duplicated history.
func foldOpenLoans(events []eventstore.Event) []openLoan {
	open := make(map[string]openLoan)
	for _, e := range events {
		switch e.Action {
		case eventstore.ActionIssue:
			open[e.BookID] = openLoan{
				BookID:   e.BookID,
				MemberID: e.MemberID,
				IssuedOn: e.OccurredOn,
				EventID:  e.ID,
			}
		case eventstore.ActionReturn:
			delete(open, e.BookID)
		}
	}

	out := make([]openLoan, 0, len(open))
	for _, l := range open {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// hasOpenLoan reports whether the projection shows bookID on an open loan.
func hasOpenLoan(events []eventstore.Event, bookID string) bool {
	for _, l := range foldOpenLoans(events) {
		if l.BookID == bookID {
			return true
		}
	}
	return false
}

// overdueAfter reports days held and the overdue flag for a loan issued on
// issuedOn, as of now. Both ends are taken at calendar-day precision.
func overdueAfter(issuedOn, now time.Time) (int, bool) {
	days := eventstore.DaysBetween(issuedOn, now)
	return days, days > LoanPeriodDays
}

// displayIndex resolves book and member keys to display fields during
// history building.
type displayIndex struct {
	titles  map[string]string
	authors map[string]string
	names   map[string]string
}

func (idx displayIndex) title(bookID string) string {
	if t, ok := idx.titles[bookID]; ok {
		return t
	}
	return unknownTitleLabel
}

func (idx displayIndex) name(memberID string) string {
	if n, ok := idx.names[memberID]; ok {
		return n
	}
	return libraryMemberLabel
}

// buildHistory merges events with display fields and computes the derived
// overdue attributes for Issue entries. Sorting is display policy: newest
// first by event identity globally, or by date (ties by identity) when
// member-scoped.
func buildHistory(events []eventstore.Event, idx displayIndex, now time.Time, memberScoped bool) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		entry := HistoryEntry{
			EventID:    e.ID,
			BookID:     e.BookID,
			Title:      idx.title(e.BookID),
			MemberID:   e.MemberID,
			MemberName: idx.name(e.MemberID),
			Action:     e.Action,
			Date:       e.OccurredOn,
		}
		if e.Action == eventstore.ActionIssue {
			entry.DaysAgo, entry.Overdue = overdueAfter(e.OccurredOn, now)
		}
		entries = append(entries, entry)
	}

	if memberScoped {
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].Date.Equal(entries[j].Date) {
				return entries[i].Date.After(entries[j].Date)
			}
			return entries[i].EventID > entries[j].EventID
		})
	} else {
		sort.Slice(entries, func(i, j int) bool { return entries[i].EventID > entries[j].EventID })
	}
	return entries
}
