package chatnet

import "context"

// Registry is a keyed object store for one entity type.
// Get, Update and Remove return ErrNotFound for unknown ids, Add returns ErrAlreadyExists on collision.
type Registry[T Entity] interface {
	Get(ctx context.Context, id string) (T, error)
	Add(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Remove(ctx context.Context, id string) error
}

// Tx exposes one registry per entity type inside a running transaction
type Tx interface {
	Users() Registry[User]
	Members() Registry[Member]
	Messages() Registry[Message]
	Chats() Registry[Chat]
	Networks() Registry[ChatNetwork]
}

// Store runs fn with all-or-nothing semantics: if fn returns an error none of its writes are visible.
// Implementations serialize transactions touching the same aggregate.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
