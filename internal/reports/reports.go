// Package reports composes read-only views for the dashboard and member
// detail pages. It only calls the circulation query interface and store
// reads; chart rendering stays with the consumer.
package reports

import (
	"context"
	"fmt"

	"circulog/internal/catalog"
	"circulog/internal/circulation"
	"circulog/internal/membership"
)

// RecentHistoryLimit caps the history slice shown on the dashboard.
const RecentHistoryLimit = 10

// KPIs are the dashboard headline numbers. Issued/available counts come
// from the cached statuses; reconciliation keeps them honest.
type KPIs struct {
	TotalBooks     int `json:"total_books"`
	IssuedBooks    int `json:"issued_books"`
	AvailableBooks int `json:"available_books"`
	TotalMembers   int `json:"total_members"`
}

// Dashboard is the landing-page payload.
type Dashboard struct {
	KPIs          KPIs                       `json:"kpis"`
	RecentHistory []circulation.HistoryEntry `json:"recent_history"`
}

// MemberDetails is the per-member payload: the record, its history and the
// loans it currently holds.
type MemberDetails struct {
	Member       membership.Member          `json:"member"`
	History      []circulation.HistoryEntry `json:"history"`
	CurrentLoans []circulation.Loan         `json:"current_loans"`
}

// BookLister reads catalog rows.
type BookLister interface {
	List(ctx context.Context) ([]catalog.Book, error)
}

// MemberReader reads member rows.
type MemberReader interface {
	Get(ctx context.Context, id string) (membership.Member, error)
	List(ctx context.Context) ([]membership.Member, error)
}

// Service builds report views.
type Service struct {
	books       BookLister
	members     MemberReader
	circulation circulation.Service
}

func NewService(books BookLister, members MemberReader, circ circulation.Service) *Service {
	return &Service{books: books, members: members, circulation: circ}
}

// BuildDashboard computes the KPIs and the most recent history entries.
func (s *Service) BuildDashboard(ctx context.Context) (Dashboard, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list books: %w", err)
	}
	members, err := s.members.List(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list members: %w", err)
	}

	kpis := KPIs{
		TotalBooks:   len(books),
		TotalMembers: len(members),
	}
	for _, b := range books {
		if b.Status == catalog.StatusIssued {
			kpis.IssuedBooks++
		}
	}
	kpis.AvailableBooks = kpis.TotalBooks - kpis.IssuedBooks

	history, err := s.circulation.History(ctx, "")
	if err != nil {
		return Dashboard{}, fmt.Errorf("load history: %w", err)
	}
	if len(history) > RecentHistoryLimit {
		history = history[:RecentHistoryLimit]
	}

	return Dashboard{KPIs: kpis, RecentHistory: history}, nil
}

// BuildMemberDetails assembles the member record with its circulation
// views.
func (s *Service) BuildMemberDetails(ctx context.Context, memberID string) (MemberDetails, error) {
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		return MemberDetails{}, err
	}

	history, err := s.circulation.History(ctx, memberID)
	if err != nil {
		return MemberDetails{}, fmt.Errorf("load member history: %w", err)
	}
	loans, err := s.circulation.ActiveLoans(ctx, memberID)
	if err != nil {
		return MemberDetails{}, fmt.Errorf("load member loans: %w", err)
	}

	return MemberDetails{Member: member, History: history, CurrentLoans: loans}, nil
}
