// Package storage is ChatHub's durable key/value layer, the stand-in for a
// browser's local storage. Values are opaque bytes; the stores above keep
// JSON documents under the keys declared here.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// KeyAuthUser holds the persisted session identity.
	KeyAuthUser = "chat_auth_user"
	// KeyRooms holds the room collection.
	KeyRooms = "chat_rooms"
	// KeyMessages holds the message collection.
	KeyMessages = "chat_messages"
)

// ErrNotFound is returned by Get when the key has never been written or
// has been deleted.
var ErrNotFound = errors.New("storage: key not found")

// ErrMalformed wraps decode failures in LoadJSON so callers can tell a
// damaged record apart from an unreachable backend.
var ErrMalformed = errors.New("storage: malformed value")

// Store is a durable key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// LoadJSON decodes the value under key into dest. It reports false with a
// nil error when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w under %s: %v", ErrMalformed, key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
