package main

import (
	"context"
	"errors"
	"testing"

	"github.com/kingrea/chathub/internal/storage"
)

func TestResetStateClearsChatKeys(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	for _, key := range stateKeys {
		if err := store.Set(ctx, key, []byte(`[]`)); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	if err := store.Set(ctx, "unrelated", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if err := resetState(ctx, cfg); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := resetState(ctx, cfg); err != nil {
		t.Fatalf("reset should be repeatable: %v", err)
	}

	store, err = storage.Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	for _, key := range stateKeys {
		if _, err := store.Get(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("%s still present: %v", key, err)
		}
	}
	if _, err := store.Get(ctx, "unrelated"); err != nil {
		t.Fatalf("reset touched unrelated keys: %v", err)
	}
}
