package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Schema creates the books table.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'Available'
);
`

// PostgresStore is the durable catalog store.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, b Book) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO books (id, title, author, department, status)
		VALUES (:id, :title, :author, :department, :status)
	`, b)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("book %s: %w", b.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Book, error) {
	var b Book
	err := s.db.GetContext(ctx, &b, `
		SELECT id, title, author, department, status FROM books WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Book{}, fmt.Errorf("select book: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Book, error) {
	var books []Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, title, author, department, status FROM books ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE books SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check book: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return nil
}
