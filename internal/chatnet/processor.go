package chatnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

type Option interface {
	apply(*Processor)
}

type optionFunc func(p *Processor)

func (f optionFunc) apply(p *Processor) { f(p) }

// WithEmitter sets the sink receiving events of committed transactions
func WithEmitter(e Emitter) Option {
	return optionFunc(func(p *Processor) {
		p.emitter = e
	})
}

// WithClock replaces time.Now for timestamps written by handlers
func WithClock(now func() time.Time) Option {
	return optionFunc(func(p *Processor) {
		p.now = now
	})
}

// WithIDGenerator replaces NewID for member and message identifiers
func WithIDGenerator(f func() string) Option {
	return optionFunc(func(p *Processor) {
		p.newID = f
	})
}

// WithoutAuthorization turns off owner/membership checks on administrative actions,
// message sending and message deletion
func WithoutAuthorization() Option {
	return optionFunc(func(p *Processor) {
		p.authorize = false
	})
}

// Processor validates transactions and runs their handlers inside a Store transaction
type Processor struct {
	logger    *zap.SugaredLogger
	store     Store
	emitter   Emitter
	now       func() time.Time
	newID     func() string
	authorize bool
}

// NewProcessor returns a Processor with authorization enabled and events discarded
func NewProcessor(logger *zap.SugaredLogger, store Store, opts ...Option) *Processor {
	p := &Processor{
		logger:    logger,
		store:     store,
		emitter:   nopEmitter{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     NewID,
		authorize: true,
	}
	for _, o := range opts {
		o.apply(p)
	}
	return p
}

// Submit runs t on behalf of the caller attached to ctx with WithCaller.
// Either every write of the handler commits or none does; events are emitted after commit.
func (p *Processor) Submit(ctx context.Context, t Transaction) error {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return fmt.Errorf("no authenticated caller: %w", ErrUnauthorized)
	}
	if err := Validate(t); err != nil {
		return err
	}

	txID := xid.New().String()
	ctx = WithTxID(ctx, txID)
	log := p.logger.With("tx_id", txID, "tx", t.Name(), "caller", caller)
	log.Debug("Running transaction")

	var events []Event
	err := p.store.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		h := &handler{
			tx:        tx,
			caller:    caller,
			now:       p.now(),
			newID:     p.newID,
			authorize: p.authorize,
		}
		if err := h.dispatch(ctx, t); err != nil {
			return err
		}
		events = h.events
		return nil
	})
	if err != nil {
		log.Warnw("Transaction aborted", "error", err)
		return fmt.Errorf("%s: %w", t.Name(), err)
	}

	log.Infow("Transaction committed", "events", len(events))
	for _, e := range events {
		p.emitter.Emit(ctx, e)
	}
	return nil
}

// ChatView is a chat resolved together with its members and messages in list order
type ChatView struct {
	Chat     Chat
	Members  []Member
	Messages []Message
}

// ViewChat reads a chat and dereferences its member and message lists.
// Message references whose record is gone are skipped.
func (p *Processor) ViewChat(ctx context.Context, chatID string) (ChatView, error) {
	var view ChatView
	err := p.store.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		h := &handler{tx: tx}
		chat, err := h.chat(ctx, ChatRef(chatID))
		if err != nil {
			return err
		}
		members, err := h.members(ctx, chat)
		if err != nil {
			return err
		}
		messages := make([]Message, 0, len(chat.MessageList))
		for _, ref := range chat.MessageList {
			m, err := tx.Messages().Get(ctx, ref.ID)
			if errors.Is(err, ErrNotFound) {
				p.logger.Warnw("Skipping dangling message reference", "chat", chat.ID, "message", ref.ID)
				continue
			}
			if err != nil {
				return fmt.Errorf("message %s: %w", ref, err)
			}
			messages = append(messages, m)
		}
		view = ChatView{Chat: chat, Members: members, Messages: messages}
		return nil
	})
	return view, err
}

type txIDKey struct{}

// WithTxID attaches a transaction id used to correlate log lines
func WithTxID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, txIDKey{}, id)
}

func TxIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(txIDKey{}).(string)
	return id, ok
}
