// Package badgerstore implements chatnet.Store on an embedded BadgerDB.
// Entities are stored as JSON under "{type}:{id}" keys; one Badger read-write txn backs each transaction.
package badgerstore

import (
	"chatnet/internal/chatnet"
	"chatnet/internal/storage/zapadapter"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var _ chatnet.Store = (*Store)(nil)

type Store struct {
	logger *zap.SugaredLogger
	db     *badger.DB
	// writers are serialized so concurrent transactions never race on the network record
	mu sync.Mutex
}

// Open opens (or creates) a database in dir. An empty dir keeps everything in memory.
func Open(logger *zap.SugaredLogger, dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(zapadapter.NewBadgerLogger(logger))
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{logger: logger, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx chatnet.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := fn(ctx, &badgerTx{logger: s.logger, txn: txn}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

type badgerTx struct {
	logger *zap.SugaredLogger
	txn    *badger.Txn
}

func (t *badgerTx) Users() chatnet.Registry[chatnet.User] {
	return registry[chatnet.User]{badgerTx: t, typ: chatnet.TypeUser}
}

func (t *badgerTx) Members() chatnet.Registry[chatnet.Member] {
	return registry[chatnet.Member]{badgerTx: t, typ: chatnet.TypeMember}
}

func (t *badgerTx) Messages() chatnet.Registry[chatnet.Message] {
	return registry[chatnet.Message]{badgerTx: t, typ: chatnet.TypeMessage}
}

func (t *badgerTx) Chats() chatnet.Registry[chatnet.Chat] {
	return registry[chatnet.Chat]{badgerTx: t, typ: chatnet.TypeChat}
}

func (t *badgerTx) Networks() chatnet.Registry[chatnet.ChatNetwork] {
	return registry[chatnet.ChatNetwork]{badgerTx: t, typ: chatnet.TypeChatNetwork}
}

type registry[T chatnet.Entity] struct {
	*badgerTx
	typ chatnet.EntityType
}

func (r registry[T]) key(id string) []byte {
	return []byte(string(r.typ) + ":" + id)
}

func (r registry[T]) exists(id string) (bool, error) {
	_, err := r.txn.Get(r.key(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r registry[T]) Get(_ context.Context, id string) (T, error) {
	var v T
	item, err := r.txn.Get(r.key(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return v, fmt.Errorf("%s %s: %w", r.typ, id, chatnet.ErrNotFound)
		}
		return v, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	})
	if err != nil {
		return v, fmt.Errorf("decode %s %s: %w", r.typ, id, err)
	}
	return v, nil
}

func (r registry[T]) Add(_ context.Context, entity T) error {
	ok, err := r.exists(entity.Key())
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s %s: %w", r.typ, entity.Key(), chatnet.ErrAlreadyExists)
	}
	return r.set(entity)
}

func (r registry[T]) Update(_ context.Context, entity T) error {
	ok, err := r.exists(entity.Key())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", r.typ, entity.Key(), chatnet.ErrNotFound)
	}
	return r.set(entity)
}

func (r registry[T]) Remove(_ context.Context, id string) error {
	ok, err := r.exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", r.typ, id, chatnet.ErrNotFound)
	}
	r.logger.Debugf("Removing %s (id: %s)", r.typ, id)
	return r.txn.Delete(r.key(id))
}

func (r registry[T]) set(entity T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", r.typ, entity.Key(), err)
	}
	r.logger.Debugf("Writing %s (id: %s)", r.typ, entity.Key())
	return r.txn.Set(r.key(entity.Key()), data)
}
