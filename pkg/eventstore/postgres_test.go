package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB attempts to connect to a PostgreSQL database for testing.
// It skips the test if the connection cannot be established.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	getenv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getenv("PGHOST", "localhost"),
		getenv("PGPORT", "5432"),
		getenv("PGUSER", "circulog"),
		getenv("PGPASSWORD", "circulog"),
		getenv("PGDATABASE", "circulog_test"),
	)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	if err := db.Ping(); err != nil {
		t.Skipf("skipping integration test: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresAppendAndRead(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewPostgres(db)
	ctx := context.Background()

	book := "itest-" + uuid.NewString()
	member := "member-" + uuid.NewString()

	issueID, err := ledger.Append(ctx, Event{
		Ref:      uuid.NewString(),
		BookID:   book,
		MemberID: member,
		Action:   ActionIssue,
	})
	require.NoError(t, err)

	returnID, err := ledger.Append(ctx, Event{
		Ref:    uuid.NewString(),
		BookID: book,
		Action: ActionReturn,
	})
	require.NoError(t, err)
	assert.Greater(t, returnID, issueID, "identities increase in append order")

	events, err := ledger.EventsForBook(ctx, book)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionIssue, events[0].Action)
	assert.Equal(t, member, events[0].MemberID)
	assert.Equal(t, ActionReturn, events[1].Action)
	assert.Empty(t, events[1].MemberID)

	forMember, err := ledger.EventsForMember(ctx, member)
	require.NoError(t, err)
	require.Len(t, forMember, 1)
	assert.Equal(t, issueID, forMember[0].ID)
}

func TestPostgresDuplicateRef(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewPostgres(db)
	ctx := context.Background()

	ref := uuid.NewString()
	_, err := ledger.Append(ctx, Event{Ref: ref, BookID: "itest-dup", Action: ActionIssue})
	require.NoError(t, err)

	_, err = ledger.Append(ctx, Event{Ref: ref, BookID: "itest-dup", Action: ActionIssue})
	assert.ErrorIs(t, err, ErrDuplicateRef)
}
