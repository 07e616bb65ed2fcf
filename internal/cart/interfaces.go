package cart

import "context"

// Storage is a key-value slot holding encoded snapshots.
type Storage interface {
	Name() string
	GetItem(ctx context.Context, key string) (value string, found bool, err error)
	SetItem(ctx context.Context, key, value string) error
}

// Snapshot is one encoded cart state bound for storage.
type Snapshot struct {
	Key     string
	Payload string
}

// Persister receives every snapshot produced by a successful mutation, in
// mutation order.
type Persister interface {
	Persist(ctx context.Context, snap Snapshot) error
}

// Service is the cart surface consumed by transport layers.
type Service interface {
	Add(ctx context.Context, p Product) (LineItem, error)
	Increment(ctx context.Context, id string) (LineItem, error)
	Decrement(ctx context.Context, id string) (LineItem, bool, error)
	View() ([]LineItem, Summary)
}

var _ Service = (*Store)(nil)
