package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapStore) Set(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapStore) Remove(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := mapStore{}

	require.NoError(t, SetJSON(ctx, store, "k", payload{Name: "a", Items: []string{"x"}}))

	var got payload
	ok, err := GetJSON(ctx, store, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload{Name: "a", Items: []string{"x"}}, got)
}

func TestGetJSONMissing(t *testing.T) {
	var got payload
	ok, err := GetJSON(context.Background(), mapStore{}, "missing", &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetJSONCorrupt(t *testing.T) {
	store := mapStore{"k": []byte("{not json")}
	var got payload
	ok, err := GetJSON(context.Background(), store, "k", &got)
	require.False(t, ok)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, "k", decodeErr.Key)
}
