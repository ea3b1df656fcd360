package memory

import (
	"chatnet/internal/chatnet"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func bootstrap(t *testing.T) *Store {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return NewStore(logger.Sugar())
}

func addChat(t *testing.T, s *Store, chat chatnet.Chat) {
	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		return tx.Chats().Add(ctx, chat)
	})
	require.NoError(t, err)
}

func TestAddGet(t *testing.T) {
	s := bootstrap(t)
	addChat(t, s, chatnet.Chat{ID: "c1", Title: "t", Type: chatnet.ChatPublicGroup, MemberList: []chatnet.Ref{chatnet.MemberRef("m1")}})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		chat, err := tx.Chats().Get(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, []chatnet.Ref{chatnet.MemberRef("m1")}, chat.MemberList)

		// values are copies
		chat.MemberList[0] = chatnet.MemberRef("other")
		again, err := tx.Chats().Get(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, chatnet.MemberRef("m1"), again.MemberList[0])
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len(chatnet.TypeChat))
	require.Equal(t, 0, s.Len(chatnet.TypeUser))
}

func TestErrors(t *testing.T) {
	s := bootstrap(t)
	addChat(t, s, chatnet.Chat{ID: "c1"})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		return tx.Chats().Add(ctx, chatnet.Chat{ID: "c1"})
	})
	require.ErrorIs(t, err, chatnet.ErrAlreadyExists)

	err = s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		return tx.Chats().Update(ctx, chatnet.Chat{ID: "c2"})
	})
	require.ErrorIs(t, err, chatnet.ErrNotFound)

	err = s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		return tx.Messages().Remove(ctx, "c1")
	})
	require.ErrorIs(t, err, chatnet.ErrNotFound)

	err = s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		_, err := tx.Users().Get(ctx, "c1")
		return err
	})
	require.ErrorIs(t, err, chatnet.ErrNotFound)
}

func TestStagedWritesVisibleInsideTransaction(t *testing.T) {
	s := bootstrap(t)
	addChat(t, s, chatnet.Chat{ID: "c1"})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		require.NoError(t, tx.Chats().Remove(ctx, "c1"))
		_, err := tx.Chats().Get(ctx, "c1")
		require.ErrorIs(t, err, chatnet.ErrNotFound)

		require.NoError(t, tx.Chats().Add(ctx, chatnet.Chat{ID: "c1", Title: "again"}))
		chat, err := tx.Chats().Get(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, "again", chat.Title)
		return nil
	})
	require.NoError(t, err)
}

func TestRollback(t *testing.T) {
	s := bootstrap(t)
	addChat(t, s, chatnet.Chat{ID: "c1", Title: "before"})

	boom := errors.New("boom")
	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		require.NoError(t, tx.Chats().Update(ctx, chatnet.Chat{ID: "c1", Title: "after"}))
		require.NoError(t, tx.Messages().Add(ctx, chatnet.Message{ID: "x"}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, s.Len(chatnet.TypeMessage))

	err = s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		chat, err := tx.Chats().Get(ctx, "c1")
		require.Equal(t, "before", chat.Title)
		return err
	})
	require.NoError(t, err)
}

func TestCanceledContextDiscardsWrites(t *testing.T) {
	s := bootstrap(t)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.RunInTransaction(ctx, func(ctx context.Context, tx chatnet.Tx) error {
		cancel()
		return tx.Chats().Add(ctx, chatnet.Chat{ID: "c1"})
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, s.Len(chatnet.TypeChat))
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	s := bootstrap(t)
	require.NoError(t, chatnet.Seed(context.Background(), s, "n", nil))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
				n, err := tx.Networks().Get(ctx, chatnet.NetworkID)
				if err != nil {
					return err
				}
				n.ChatList = append(n.ChatList, chatnet.ChatRef(chatnet.NewID()))
				return tx.Networks().Update(ctx, n)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx chatnet.Tx) error {
		n, err := tx.Networks().Get(ctx, chatnet.NetworkID)
		require.Len(t, n.ChatList, 50)
		return err
	})
	require.NoError(t, err)
}
