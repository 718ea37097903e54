package catalog

import (
	"context"
	"fmt"
	"log/slog"
)

// service implements the Service interface.
type service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new catalog service instance.
func NewService(store Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, logger: logger}
}

// AddBook registers a new book. New books always start Available; only the
// circulation command layer and the reconciler may flip the status later.
func (s *service) AddBook(ctx context.Context, b Book) (Book, error) {
	if b.ID == "" || b.Title == "" || b.Author == "" {
		return Book{}, fmt.Errorf("id, title and author are required: %w", ErrValidation)
	}

	b.Status = StatusAvailable
	if err := s.store.Add(ctx, b); err != nil {
		return Book{}, err
	}

	s.logger.Info("book added", "book_id", b.ID, "title", b.Title)
	return b, nil
}

func (s *service) GetBook(ctx context.Context, id string) (Book, error) {
	return s.store.Get(ctx, id)
}

// ListBooks returns one page of books, optionally filtered by cached
// status. Pages are 1-based.
func (s *service) ListBooks(ctx context.Context, status Status, page int) (Page, error) {
	books, err := s.store.List(ctx)
	if err != nil {
		return Page{}, err
	}

	if status != "" {
		filtered := books[:0]
		for _, b := range books {
			if b.Status == status {
				filtered = append(filtered, b)
			}
		}
		books = filtered
	}

	if page < 1 {
		page = 1
	}
	total := len(books)
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Books:   books[start:end],
		Page:    page,
		Total:   total,
		HasNext: end < total,
		HasPrev: page > 1,
	}, nil
}

func (s *service) RemoveBook(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("book removed", "book_id", id)
	return nil
}
