package storage

import (
	"chatnet/internal/chatnet"
	"chatnet/internal/storage/zapadapter"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

var (
	_ chatnet.Store         = (*Store)(nil)
	_ chatnet.BulkUserAdder = (*Store)(nil)
)

// every entity type lives in one table keyed by (asset_type, id)
const schema = `create table if not exists assets (
	asset_type text  not null,
	id         text  not null,
	payload    jsonb not null,
	primary key (asset_type, id)
)`

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool, creates the assets table
// and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, dsn string, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())
	for _, o := range opts {
		o.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create assets table: %w", err)
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close closes all pool connections
func (s *Store) Close() {
	s.db.Close()
}

// RunInTransaction runs fn inside one database transaction and commits only when fn succeeds.
// Reads lock the returned rows until the end of the transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx chatnet.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	// error handling can be omitted for rollback according docs
	// see https://pkg.go.dev/github.com/jackc/pgx/v4?tab=doc#hdr-Transactions or any source comment on Rollback
	defer tx.Rollback(context.Background())

	if err := fn(ctx, &pgTx{logger: s.logger, tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddUsers bulk inserts users via COPY in a single transaction
func (s *Store) AddUsers(ctx context.Context, users []chatnet.User) error {
	s.logger.Debugf("Importing %d users", len(users))

	rows := make([]assetRow, 0, len(users))
	for _, u := range users {
		payload, err := json.Marshal(u)
		if err != nil {
			return err
		}
		rows = append(rows, assetRow{
			assetType: string(chatnet.TypeUser),
			id:        u.ID,
			payload:   string(payload),
		})
	}

	_, err := s.db.CopyFrom(ctx, pgx.Identifier{"assets"}, []string{"asset_type", "id", "payload"}, copyFromBulk(rows))
	if err != nil {
		return mapError(err, chatnet.TypeUser, "bulk")
	}

	s.logger.Debugf("Imported %d users", len(users))

	return nil
}

// mapError translates unique violations into chatnet.ErrAlreadyExists
func mapError(err error, typ chatnet.EntityType, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s %s: %w", typ, id, chatnet.ErrAlreadyExists)
	}
	return err
}

type pgTx struct {
	logger *zap.SugaredLogger
	tx     pgx.Tx
}

func (t *pgTx) Users() chatnet.Registry[chatnet.User] {
	return registry[chatnet.User]{pgTx: t, typ: chatnet.TypeUser}
}

func (t *pgTx) Members() chatnet.Registry[chatnet.Member] {
	return registry[chatnet.Member]{pgTx: t, typ: chatnet.TypeMember}
}

func (t *pgTx) Messages() chatnet.Registry[chatnet.Message] {
	return registry[chatnet.Message]{pgTx: t, typ: chatnet.TypeMessage}
}

func (t *pgTx) Chats() chatnet.Registry[chatnet.Chat] {
	return registry[chatnet.Chat]{pgTx: t, typ: chatnet.TypeChat}
}

func (t *pgTx) Networks() chatnet.Registry[chatnet.ChatNetwork] {
	return registry[chatnet.ChatNetwork]{pgTx: t, typ: chatnet.TypeChatNetwork}
}

type registry[T chatnet.Entity] struct {
	*pgTx
	typ chatnet.EntityType
}

// Get locks the row for the rest of the transaction
func (r registry[T]) Get(ctx context.Context, id string) (T, error) {
	r.logger.Debugf("Retrieving %s (id: %s)", r.typ, id)

	var v T
	var payload pgtype.JSONB
	sql := "select payload from assets where asset_type = $1 and id = $2 for update"
	err := r.tx.QueryRow(ctx, sql, string(r.typ), id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return v, fmt.Errorf("%s %s: %w", r.typ, id, chatnet.ErrNotFound)
		}
		return v, err
	}

	if err := payload.AssignTo(&v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", r.typ, id, err)
	}
	return v, nil
}

func (r registry[T]) Add(ctx context.Context, entity T) error {
	r.logger.Debugf("Creating %s (id: %s)", r.typ, entity.Key())

	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	sql := "insert into assets (asset_type, id, payload) values ($1, $2, $3)"
	_, err = r.tx.Exec(ctx, sql, string(r.typ), entity.Key(), string(payload))
	if err != nil {
		return mapError(err, r.typ, entity.Key())
	}
	return nil
}

func (r registry[T]) Update(ctx context.Context, entity T) error {
	r.logger.Debugf("Updating %s (id: %s)", r.typ, entity.Key())

	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	sql := "update assets set payload = $3 where asset_type = $1 and id = $2"
	ct, err := r.tx.Exec(ctx, sql, string(r.typ), entity.Key(), string(payload))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", r.typ, entity.Key(), chatnet.ErrNotFound)
	}
	return nil
}

func (r registry[T]) Remove(ctx context.Context, id string) error {
	r.logger.Debugf("Removing %s (id: %s)", r.typ, id)

	sql := "delete from assets where asset_type = $1 and id = $2"
	ct, err := r.tx.Exec(ctx, sql, string(r.typ), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", r.typ, id, chatnet.ErrNotFound)
	}
	return nil
}
