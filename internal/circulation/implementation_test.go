package circulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulog/internal/catalog"
	"circulog/internal/membership"
	"circulog/pkg/eventstore"
)

type fixture struct {
	ledger  *eventstore.Memory
	books   *catalog.MemoryStore
	members *membership.MemoryStore
	service Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ledger:  eventstore.NewMemory(),
		books:   catalog.NewMemoryStore(),
		members: membership.NewMemoryStore(),
		now:     day(20),
	}

	ctx := context.Background()
	require.NoError(t, f.books.Add(ctx, catalog.Book{ID: "B1", Title: "Clean Code", Author: "Robert C. Martin", Status: catalog.StatusAvailable}))
	require.NoError(t, f.books.Add(ctx, catalog.Book{ID: "B2", Title: "Fluid Mechanics", Author: "R.K. Bansal", Status: catalog.StatusAvailable}))
	require.NoError(t, f.members.Add(ctx, membership.Member{ID: "M1", Name: "Aarav Sharma"}))
	require.NoError(t, f.members.Add(ctx, membership.Member{ID: "M2", Name: "Diya Malhotra"}))

	f.service = NewService(f.ledger, f.books, f.members, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) status(t *testing.T, bookID string) catalog.Status {
	t.Helper()
	b, err := f.books.Get(context.Background(), bookID)
	require.NoError(t, err)
	return b.Status
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("appends event and flips cached status", func(t *testing.T) {
		f := newFixture(t)

		msg, err := f.service.Issue(ctx, "B1", "M1")
		require.NoError(t, err)
		assert.Equal(t, "Book B1 issued to M1 successfully.", msg)
		assert.Equal(t, catalog.StatusIssued, f.status(t, "B1"))

		events, err := f.ledger.AllEvents(ctx)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, eventstore.ActionIssue, events[0].Action)
		assert.Equal(t, "M1", events[0].MemberID)
		assert.Equal(t, eventstore.Day(f.now), events[0].OccurredOn)
		assert.NotEmpty(t, events[0].Ref)
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "B9", "M1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown member", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "B1", "M9")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty keys are rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "", "M1")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = f.service.Issue(ctx, "B1", "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("already issued book is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "B1", "M1")
		require.NoError(t, err)

		_, err = f.service.Issue(ctx, "B1", "M2")
		assert.ErrorIs(t, err, ErrInvalidTransition)

		events, err := f.ledger.AllEvents(ctx)
		require.NoError(t, err)
		assert.Len(t, events, 1, "rejected command must not append")
	})

	t.Run("validation uses the projection, not the cached status", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "B1", "M1")
		require.NoError(t, err)

		// Corrupt the cache; the ledger still shows an open loan.
		require.NoError(t, f.books.SetStatus(ctx, "B1", catalog.StatusAvailable))

		_, err = f.service.Issue(ctx, "B1", "M2")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("closes the loan without member attribution", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "B1", "M1")
		require.NoError(t, err)

		msg, err := f.service.Return(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, "Book B1 returned successfully.", msg)
		assert.Equal(t, catalog.StatusAvailable, f.status(t, "B1"))

		events, err := f.ledger.AllEvents(ctx)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, eventstore.ActionReturn, events[1].Action)
		assert.Empty(t, events[1].MemberID)
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Return(ctx, "B9")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returning an available book fails, not a silent no-op", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Return(ctx, "B1")
		assert.ErrorIs(t, err, ErrInvalidTransition)

		events, err := f.ledger.AllEvents(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestReturnThenIssueRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Issue(ctx, "B1", "M1")
	require.NoError(t, err)
	_, err = f.service.Return(ctx, "B1")
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, "B1", "M2")
	require.NoError(t, err)

	loans, err := f.service.ActiveLoans(ctx, "")
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "B1", loans[0].BookID)
	assert.Equal(t, "M2", loans[0].MemberID)
}

func TestNoDoubleIssueUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Issue(ctx, "B1", "M1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent issue may win")

	events, err := f.ledger.AllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestActiveLoans(t *testing.T) {
	ctx := context.Background()

	t.Run("empty ledger", func(t *testing.T) {
		f := newFixture(t)
		loans, err := f.service.ActiveLoans(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, loans)
	})

	t.Run("computes days held and overdue from issue date", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Append(ctx, eventstore.Event{
			Ref: "t-old", BookID: "B1", MemberID: "M1",
			Action: eventstore.ActionIssue, OccurredOn: day(5),
		})
		require.NoError(t, err)
		_, err = f.ledger.Append(ctx, eventstore.Event{
			Ref: "t-new", BookID: "B2", MemberID: "M1",
			Action: eventstore.ActionIssue, OccurredOn: day(6),
		})
		require.NoError(t, err)

		loans, err := f.service.ActiveLoans(ctx, "")
		require.NoError(t, err)
		require.Len(t, loans, 2)

		assert.Equal(t, 15, loans[0].DaysHeld)
		assert.True(t, loans[0].Overdue)
		assert.Equal(t, "Clean Code", loans[0].Title)

		assert.Equal(t, 14, loans[1].DaysHeld)
		assert.False(t, loans[1].Overdue)
	})

	t.Run("member scope filters the global fold", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Issue(ctx, "B1", "M1")
		require.NoError(t, err)
		_, err = f.service.Issue(ctx, "B2", "M2")
		require.NoError(t, err)

		loans, err := f.service.ActiveLoans(ctx, "M2")
		require.NoError(t, err)
		require.Len(t, loans, 1)
		assert.Equal(t, "B2", loans[0].BookID)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Issue(ctx, "B1", "M1")
	require.NoError(t, err)
	_, err = f.service.Return(ctx, "B1")
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, "B2", "M2")
	require.NoError(t, err)

	t.Run("global history is newest first with display fields", func(t *testing.T) {
		entries, err := f.service.History(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "Fluid Mechanics", entries[0].Title)
		assert.Equal(t, "Diya Malhotra", entries[0].MemberName)
		assert.Equal(t, "Library", entries[1].MemberName, "unattributed return shows the fallback label")
	})

	t.Run("member history excludes unattributed returns", func(t *testing.T) {
		entries, err := f.service.History(ctx, "M1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, eventstore.ActionIssue, entries[0].Action)
		assert.Equal(t, "B1", entries[0].BookID)
	})
}
