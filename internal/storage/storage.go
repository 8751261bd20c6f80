package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Snapshot keys. Each holds one JSON array written as a whole.
const (
	PrizesKey  = "products-snapshot"
	WinnersKey = "winners-snapshot"
)

// ErrEmptyKey is returned when a caller passes an empty key.
var ErrEmptyKey = errors.New("storage: empty key")

// Store is a string-valued key-value store. A missing key is reported with
// ok == false and a nil error.
type Store interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// LoadJSON decodes the snapshot stored under key into v.
// It reports false when the key does not exist.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON replaces the snapshot under key with the JSON encoding of v.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, string(raw))
}
