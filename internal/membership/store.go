package membership

import "context"

// Store is the member persistence contract.
type Store interface {
	Add(ctx context.Context, m Member) error
	Get(ctx context.Context, id string) (Member, error)
	List(ctx context.Context) ([]Member, error)
	Exists(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) error
}
