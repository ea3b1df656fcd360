// Package memory provides an in-process chatnet.Store.
// Transactions run one at a time and stage their writes until fn returns without error.
package memory

import (
	"chatnet/internal/chatnet"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var _ chatnet.Store = (*Store)(nil)

type key struct {
	typ chatnet.EntityType
	id  string
}

// Store keeps entities JSON-encoded so callers never share memory with stored state
type Store struct {
	logger *zap.SugaredLogger
	mu     sync.Mutex
	data   map[key][]byte
}

func NewStore(logger *zap.SugaredLogger) *Store {
	return &Store{
		logger: logger,
		data:   make(map[key][]byte),
	}
}

// RunInTransaction holds the store lock for the whole of fn
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx chatnet.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: make(map[key]staged)}
	if err := fn(ctx, tx); err != nil {
		s.logger.Debugf("Discarding %d staged writes: %v", len(tx.staged), err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, st := range tx.staged {
		if st.deleted {
			delete(s.data, k)
			continue
		}
		s.data[k] = st.data
	}
	s.logger.Debugf("Committed %d writes", len(tx.staged))
	return nil
}

// Len returns the number of committed entities of one type
func (s *Store) Len(typ chatnet.EntityType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.data {
		if k.typ == typ {
			n++
		}
	}
	return n
}

type staged struct {
	data    []byte
	deleted bool
}

type memTx struct {
	store  *Store
	staged map[key]staged
}

func (tx *memTx) read(k key) ([]byte, bool) {
	if st, ok := tx.staged[k]; ok {
		return st.data, !st.deleted
	}
	data, ok := tx.store.data[k]
	return data, ok
}

func (tx *memTx) Users() chatnet.Registry[chatnet.User] {
	return registry[chatnet.User]{tx: tx, typ: chatnet.TypeUser}
}

func (tx *memTx) Members() chatnet.Registry[chatnet.Member] {
	return registry[chatnet.Member]{tx: tx, typ: chatnet.TypeMember}
}

func (tx *memTx) Messages() chatnet.Registry[chatnet.Message] {
	return registry[chatnet.Message]{tx: tx, typ: chatnet.TypeMessage}
}

func (tx *memTx) Chats() chatnet.Registry[chatnet.Chat] {
	return registry[chatnet.Chat]{tx: tx, typ: chatnet.TypeChat}
}

func (tx *memTx) Networks() chatnet.Registry[chatnet.ChatNetwork] {
	return registry[chatnet.ChatNetwork]{tx: tx, typ: chatnet.TypeChatNetwork}
}

type registry[T chatnet.Entity] struct {
	tx  *memTx
	typ chatnet.EntityType
}

func (r registry[T]) Get(_ context.Context, id string) (T, error) {
	var v T
	data, ok := r.tx.read(key{r.typ, id})
	if !ok {
		return v, fmt.Errorf("%s %s: %w", r.typ, id, chatnet.ErrNotFound)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", r.typ, id, err)
	}
	return v, nil
}

func (r registry[T]) Add(_ context.Context, entity T) error {
	k := key{r.typ, entity.Key()}
	if _, ok := r.tx.read(k); ok {
		return fmt.Errorf("%s %s: %w", r.typ, k.id, chatnet.ErrAlreadyExists)
	}
	return r.put(k, entity)
}

func (r registry[T]) Update(_ context.Context, entity T) error {
	k := key{r.typ, entity.Key()}
	if _, ok := r.tx.read(k); !ok {
		return fmt.Errorf("%s %s: %w", r.typ, k.id, chatnet.ErrNotFound)
	}
	return r.put(k, entity)
}

func (r registry[T]) Remove(_ context.Context, id string) error {
	k := key{r.typ, id}
	if _, ok := r.tx.read(k); !ok {
		return fmt.Errorf("%s %s: %w", r.typ, id, chatnet.ErrNotFound)
	}
	r.tx.staged[k] = staged{deleted: true}
	return nil
}

func (r registry[T]) put(k key, entity T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", r.typ, k.id, err)
	}
	r.tx.staged[k] = staged{data: data}
	return nil
}
