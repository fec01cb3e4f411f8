package kvstore

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/animuse/animuse/pkg/kv"
)

// ValkeyStore persists values in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a store. Keys are namespaced by prefix; a positive
// ttl expires idle entries.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "animuse"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements kv.Store.
func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.client.B().Get().Key(s.key(key)).Build()
	payload, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

// Set implements kv.Store.
func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte) error {
	builder := s.client.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

// Remove implements kv.Store.
func (s *ValkeyStore) Remove(ctx context.Context, key string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
}

func (s *ValkeyStore) key(key string) string {
	return s.prefix + ":" + key
}

var _ kv.Store = (*ValkeyStore)(nil)
