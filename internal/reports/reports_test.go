package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulog/internal/catalog"
	"circulog/internal/circulation"
	"circulog/internal/membership"
	"circulog/pkg/eventstore"
)

func day(n int) time.Time {
	return time.Date(2026, time.August, n, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	books   *catalog.MemoryStore
	members *membership.MemoryStore
	circ    circulation.Service
	reports *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := eventstore.NewMemory()
	books := catalog.NewMemoryStore()
	members := membership.NewMemoryStore()
	circ := circulation.NewService(ledger, books, members,
		circulation.WithClock(func() time.Time { return day(20) }))

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		require.NoError(t, books.Add(ctx, catalog.Book{
			ID: fmt.Sprintf("B%d", i), Title: fmt.Sprintf("Title %d", i), Author: "a",
			Status: catalog.StatusAvailable,
		}))
	}
	require.NoError(t, members.Add(ctx, membership.Member{ID: "M1", Name: "Aarav Sharma"}))
	require.NoError(t, members.Add(ctx, membership.Member{ID: "M2", Name: "Diya Malhotra"}))

	return &fixture{
		books:   books,
		members: members,
		circ:    circ,
		reports: NewService(books, members, circ),
	}
}

func TestBuildDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("kpis reflect the cached statuses", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.circ.Issue(ctx, "B1", "M1")
		require.NoError(t, err)
		_, err = f.circ.Issue(ctx, "B2", "M2")
		require.NoError(t, err)

		d, err := f.reports.BuildDashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, KPIs{TotalBooks: 4, IssuedBooks: 2, AvailableBooks: 2, TotalMembers: 2}, d.KPIs)
	})

	t.Run("recent history is capped", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < RecentHistoryLimit/2+1; i++ {
			_, err := f.circ.Issue(ctx, "B1", "M1")
			require.NoError(t, err)
			_, err = f.circ.Return(ctx, "B1")
			require.NoError(t, err)
		}

		d, err := f.reports.BuildDashboard(ctx)
		require.NoError(t, err)
		assert.Len(t, d.RecentHistory, RecentHistoryLimit)
	})
}

func TestBuildMemberDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles profile, history and open loans", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.circ.Issue(ctx, "B1", "M1")
		require.NoError(t, err)
		_, err = f.circ.Issue(ctx, "B2", "M1")
		require.NoError(t, err)
		_, err = f.circ.Issue(ctx, "B3", "M2")
		require.NoError(t, err)

		details, err := f.reports.BuildMemberDetails(ctx, "M1")
		require.NoError(t, err)
		assert.Equal(t, "Aarav Sharma", details.Member.Name)
		assert.Len(t, details.History, 2)
		assert.Len(t, details.CurrentLoans, 2)
		for _, l := range details.CurrentLoans {
			assert.Equal(t, "M1", l.MemberID)
		}
	})

	t.Run("unknown member surfaces not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reports.BuildMemberDetails(ctx, "ghost")
		assert.ErrorIs(t, err, membership.ErrNotFound)
	})
}
