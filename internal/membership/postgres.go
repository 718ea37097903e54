package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Schema creates the members table.
const Schema = `
CREATE TABLE IF NOT EXISTS members (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	batch TEXT NOT NULL DEFAULT ''
);
`

// PostgresStore is the durable member store.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, m Member) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO members (id, name, role, department, batch)
		VALUES (:id, :name, :role, :department, :batch)
	`, m)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("member %s: %w", m.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Member, error) {
	var m Member
	err := s.db.GetContext(ctx, &m, `
		SELECT id, name, role, department, batch FROM members WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Member{}, fmt.Errorf("select member: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Member, error) {
	var members []Member
	err := s.db.SelectContext(ctx, &members, `
		SELECT id, name, role, department, batch FROM members ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return nil
}
