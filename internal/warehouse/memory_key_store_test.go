package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(id, key, clientID string) *Key {
	return &Key{
		ID:          id,
		Key:         key,
		ClientID:    clientID,
		Name:        "test key",
		Permissions: []string{"analysis:read"},
		CreatedAt:   time.Now(),
		Active:      true,
	}
}

func TestInMemoryKeyStore_AddAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryKeyStore()

	key := testKey("id-1", "salescube_ak_one", "dashboard")
	require.NoError(t, store.Add(ctx, key))

	found, exists := store.FindByKey(ctx, "salescube_ak_one")
	require.True(t, exists)
	assert.Equal(t, "id-1", found.ID)

	// Mutating the returned copy must not affect the store.
	found.Name = "changed"

	again, _ := store.FindByKey(ctx, "salescube_ak_one")
	assert.Equal(t, "test key", again.Name)
}

func TestInMemoryKeyStore_AddDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryKeyStore()

	require.NoError(t, store.Add(ctx, testKey("id-1", "salescube_ak_one", "dashboard")))

	assert.ErrorIs(t, store.Add(ctx, testKey("id-1", "salescube_ak_two", "dashboard")), ErrKeyAlreadyExists)
	assert.ErrorIs(t, store.Add(ctx, testKey("id-2", "salescube_ak_one", "dashboard")), ErrKeyAlreadyExists)
	assert.ErrorIs(t, store.Add(ctx, nil), ErrKeyNil)
}

func TestInMemoryKeyStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryKeyStore()

	require.NoError(t, store.Add(ctx, testKey("id-1", "salescube_ak_one", "dashboard")))

	updated := testKey("id-1", "salescube_ak_rotated", "reporting")
	require.NoError(t, store.Update(ctx, updated))

	_, exists := store.FindByKey(ctx, "salescube_ak_one")
	assert.False(t, exists, "old key string must be gone after rotation")

	found, exists := store.FindByKey(ctx, "salescube_ak_rotated")
	require.True(t, exists)
	assert.Equal(t, "reporting", found.ClientID)

	oldClient, err := store.ListByClient(ctx, "dashboard")
	require.NoError(t, err)
	assert.Empty(t, oldClient)

	assert.ErrorIs(t, store.Update(ctx, testKey("missing", "salescube_ak_x", "c")), ErrKeyNotFound)
}

func TestInMemoryKeyStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryKeyStore()

	require.NoError(t, store.Add(ctx, testKey("id-1", "salescube_ak_one", "dashboard")))
	require.NoError(t, store.Delete(ctx, "id-1"))

	_, exists := store.FindByKey(ctx, "salescube_ak_one")
	assert.False(t, exists)

	assert.ErrorIs(t, store.Delete(ctx, "id-1"), ErrKeyNotFound)
}

func TestInMemoryKeyStore_ListByClient(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryKeyStore()

	require.NoError(t, store.Add(ctx, testKey("id-1", "salescube_ak_one", "dashboard")))
	require.NoError(t, store.Add(ctx, testKey("id-2", "salescube_ak_two", "dashboard")))
	require.NoError(t, store.Add(ctx, testKey("id-3", "salescube_ak_three", "reporting")))

	keys, err := store.ListByClient(ctx, "dashboard")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	empty, err := store.ListByClient(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
