package membership

import "context"

// PageSize is the number of members per listing page.
const PageSize = 20

// Page is one window of a member listing.
type Page struct {
	Members []Member `json:"members"`
	Page    int      `json:"page"`
	Total   int      `json:"total"`
	HasNext bool     `json:"has_next"`
	HasPrev bool     `json:"has_prev"`
}

// Service defines the membership management boundary.
type Service interface {
	Register(ctx context.Context, m Member) (Member, error)
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context, page int) (Page, error)
	RemoveMember(ctx context.Context, id string) error
}
