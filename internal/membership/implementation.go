package membership

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

// NewService creates a new membership service instance.
func NewService(store Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, logger: logger}
}

func (s *service) Register(ctx context.Context, m Member) (Member, error) {
	if m.ID == "" || m.Name == "" {
		return Member{}, fmt.Errorf("id and name are required: %w", ErrValidation)
	}

	if err := s.store.Add(ctx, m); err != nil {
		return Member{}, err
	}

	s.logger.Info("member registered", "member_id", m.ID)
	return m, nil
}

func (s *service) GetMember(ctx context.Context, id string) (Member, error) {
	return s.store.Get(ctx, id)
}

// ListMembers returns one page of members. Pages are 1-based.
func (s *service) ListMembers(ctx context.Context, page int) (Page, error) {
	members, err := s.store.List(ctx)
	if err != nil {
		return Page{}, err
	}

	if page < 1 {
		page = 1
	}
	total := len(members)
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Members: members[start:end],
		Page:    page,
		Total:   total,
		HasNext: end < total,
		HasPrev: page > 1,
	}, nil
}

func (s *service) RemoveMember(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("member removed", "member_id", id)
	return nil
}
