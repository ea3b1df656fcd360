package chatnet_test

import (
	"chatnet/internal/chatnet"
	"chatnet/internal/storage/memory"
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
)

var epoch = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []chatnet.Event
}

func (r *recorder) Emit(_ context.Context, e chatnet.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []chatnet.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chatnet.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	t      *testing.T
	p      *chatnet.Processor
	store  *memory.Store
	events *recorder
}

func bootstrap(t *testing.T, opts ...chatnet.Option) *fixture {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	store := memory.NewStore(logger.Sugar())
	users := []chatnet.User{
		{ID: alice, FirstName: "Alice", LastName: "A"},
		{ID: bob, FirstName: "Bob", LastName: "B"},
		{ID: carol, FirstName: "Carol", LastName: "C"},
	}
	require.NoError(t, chatnet.Seed(context.Background(), store, "test network", users))

	var n int
	events := &recorder{}
	opts = append([]chatnet.Option{
		chatnet.WithEmitter(events),
		chatnet.WithClock(func() time.Time { return epoch }),
		chatnet.WithIDGenerator(func() string {
			n++
			return "id-" + strconv.Itoa(n)
		}),
	}, opts...)

	return &fixture{
		t:      t,
		p:      chatnet.NewProcessor(logger.Sugar(), store, opts...),
		store:  store,
		events: events,
	}
}

func as(user string) context.Context {
	return chatnet.WithCaller(context.Background(), user)
}

func (f *fixture) submit(user string, tx chatnet.Transaction) error {
	return f.p.Submit(as(user), tx)
}

func (f *fixture) mustSubmit(user string, tx chatnet.Transaction) {
	require.NoError(f.t, f.submit(user, tx))
}

func (f *fixture) group(owner, id string, typ chatnet.ChatType) {
	f.mustSubmit(owner, chatnet.StartNewGroupChat{NewChatID: id, NewChatTitle: "title " + id, Type: typ})
}

func (f *fixture) view(chatID string) chatnet.ChatView {
	v, err := f.p.ViewChat(context.Background(), chatID)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) network() chatnet.ChatNetwork {
	var n chatnet.ChatNetwork
	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		var err error
		n, err = tx.Networks().Get(ctx, chatnet.NetworkID)
		return err
	})
	require.NoError(f.t, err)
	return n
}

func (f *fixture) memberOf(chatID, user string) chatnet.Member {
	for _, m := range f.view(chatID).Members {
		if m.User.ID == user {
			return m
		}
	}
	f.t.Fatalf("no member for %s in %s", user, chatID)
	return chatnet.Member{}
}
