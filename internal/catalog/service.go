package catalog

import "context"

// PageSize is the number of books per listing page.
const PageSize = 20

// Page is one window of a book listing.
type Page struct {
	Books   []Book `json:"books"`
	Page    int    `json:"page"`
	Total   int    `json:"total"`
	HasNext bool   `json:"has_next"`
	HasPrev bool   `json:"has_prev"`
}

// Service defines the catalog management boundary. Book creation and
// removal happen here, outside the circulation core.
type Service interface {
	AddBook(ctx context.Context, b Book) (Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	ListBooks(ctx context.Context, status Status, page int) (Page, error)
	RemoveBook(ctx context.Context, id string) error
}
