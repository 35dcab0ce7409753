package main

import (
	"context"
	"fmt"

	"github.com/kingrea/chathub/internal/config"
	"github.com/kingrea/chathub/internal/storage"
)

var stateKeys = []string{storage.KeyAuthUser, storage.KeyRooms, storage.KeyMessages}

// resetState removes the session and chat records from the configured
// backend so the next start falls back to seed data.
func resetState(ctx context.Context, cfg *config.Config) error {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, key := range stateKeys {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
