package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiershare/hiershare/internal/models"
)

func testKey() models.ResourceKey {
	return models.ResourceKey{
		Service: "payments",
		Type:    "database",
		Org:     "acme",
		Name:    "ledger",
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	resource := models.Resource{
		ResourceKey: testKey(),
		Properties:  map[string]any{"tier": "gold"},
		CreatedBy:   "alice",
	}

	require.NoError(t, s.Create(ctx, resource))

	got, err := s.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.Equal(t, "gold", got.Properties["tier"])

	got.Properties["tier"] = "silver"
	require.NoError(t, s.Update(ctx, got))

	got, err = s.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, "silver", got.Properties["tier"])

	require.NoError(t, s.Delete(ctx, testKey()))

	_, err = s.Get(ctx, testKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	resource := models.Resource{ResourceKey: testKey()}
	require.NoError(t, s.Create(ctx, resource))
	assert.ErrorIs(t, s.Create(ctx, resource), ErrAlreadyExists)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Update(ctx, models.Resource{ResourceKey: testKey()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.Delete(ctx, testKey()), ErrNotFound)
}

func TestMemoryStorePing(t *testing.T) {
	assert.NoError(t, NewMemoryStore().Ping(context.Background()))
}
