// Package catalog holds book records and their cached circulation status.
// The status column is a denormalized projection of the ledger; it may
// transiently diverge and is repaired by reconciliation.
package catalog

import "errors"

// Status is the cached circulation state of a book.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusIssued    Status = "Issued"
)

var (
	ErrNotFound   = errors.New("book not found")
	ErrDuplicate  = errors.New("book id already exists")
	ErrValidation = errors.New("validation failed")
)

// Book is a catalog item. Title, Author and Department are opaque to the
// circulation core.
type Book struct {
	ID         string `json:"book_id" db:"id"`
	Title      string `json:"title" db:"title"`
	Author     string `json:"author" db:"author"`
	Department string `json:"department" db:"department"`
	Status     Status `json:"status" db:"status"`
}
