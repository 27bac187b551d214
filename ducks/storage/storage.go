// Package storage provides key-value backends for persisted state slices.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage is a key-value store for state snapshots.
type Storage interface {
	// Get returns the value under key. ok is false when nothing is stored.
	Get(ctx context.Context, key string) (value any, ok bool, err error)
	Set(ctx context.Context, key string, value any) error
}

var (
	ErrEmptyKey       = errors.New("storage key is empty")
	ErrRejected       = errors.New("storage rejected the write")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

func encode(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}

func decode(raw string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return value, nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
