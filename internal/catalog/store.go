package catalog

import "context"

// Store is the catalog persistence contract. Postgres and Memory both
// satisfy it so tests can run against an in-process fake.
type Store interface {
	Add(ctx context.Context, b Book) error
	Get(ctx context.Context, id string) (Book, error)
	List(ctx context.Context) ([]Book, error)
	SetStatus(ctx context.Context, id string, s Status) error
	Exists(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) error
}
