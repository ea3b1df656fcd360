package chatnet

import (
	"context"
	"errors"
	"fmt"
)

// BulkUserAdder is implemented by stores able to import many users in one round trip
type BulkUserAdder interface {
	AddUsers(ctx context.Context, users []User) error
}

// Seed creates the ChatNetwork singleton when it is missing and registers users.
// Users are imported through BulkUserAdder when the store supports it.
func Seed(ctx context.Context, store Store, networkName string, users []User) error {
	err := store.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.Networks().Get(ctx, NetworkID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrNotFound):
			return tx.Networks().Add(ctx, ChatNetwork{ID: NetworkID, Name: networkName, ChatList: []Ref{}})
		default:
			return err
		}
	})
	if err != nil {
		return fmt.Errorf("seed chat network: %w", err)
	}

	if len(users) == 0 {
		return nil
	}
	if bulk, ok := store.(BulkUserAdder); ok {
		if err := bulk.AddUsers(ctx, users); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		return nil
	}
	err = store.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		for _, u := range users {
			if err := tx.Users().Add(ctx, u); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}
