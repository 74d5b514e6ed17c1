package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/salescube-io/salescube/internal/config"
)

func setupKeyStore(ctx context.Context, t *testing.T) *PersistentKeyStore {
	t.Helper()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	store, err := NewPersistentKeyStore(&Connection{DB: testDB.Connection})
	require.NoError(t, err)

	return store
}

func newPersistedKey(t *testing.T, clientID string) *Key {
	t.Helper()

	keyString, err := GenerateAPIKey(clientID)
	require.NoError(t, err)

	return &Key{
		ID:          uuid.NewString(),
		Key:         keyString,
		ClientID:    clientID,
		Name:        "integration test key",
		Permissions: []string{"analysis:read"},
		CreatedAt:   time.Now().UTC(),
		Active:      true,
	}
}

func TestPersistentKeyStore_AddAndFind(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupKeyStore(ctx, t)

	key := newPersistedKey(t, "dashboard")
	require.NoError(t, store.Add(ctx, key))

	found, exists := store.FindByKey(ctx, key.Key)
	require.True(t, exists, "key must be found via bcrypt comparison")
	assert.Equal(t, key.ID, found.ID)
	assert.Equal(t, "dashboard", found.ClientID)
	assert.NotEqual(t, key.Key, found.Key, "plaintext key must never come back")
	assert.Equal(t, []string{"analysis:read"}, found.Permissions)

	_, exists = store.FindByKey(ctx, "salescube_ak_nonexistent")
	assert.False(t, exists)
}

func TestPersistentKeyStore_AddDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupKeyStore(ctx, t)

	key := newPersistedKey(t, "dashboard")
	require.NoError(t, store.Add(ctx, key))

	dup := newPersistedKey(t, "dashboard")
	dup.Key = key.Key

	assert.ErrorIs(t, store.Add(ctx, dup), ErrKeyAlreadyExists)
}

func TestPersistentKeyStore_UpdateAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupKeyStore(ctx, t)

	key := newPersistedKey(t, "dashboard")
	require.NoError(t, store.Add(ctx, key))

	key.Name = "renamed"
	key.Permissions = []string{"analysis:read", "facts:write"}
	require.NoError(t, store.Update(ctx, key))

	found, exists := store.FindByKey(ctx, key.Key)
	require.True(t, exists)
	assert.Equal(t, "renamed", found.Name)
	assert.Len(t, found.Permissions, 2)

	require.NoError(t, store.Delete(ctx, key.ID))

	_, exists = store.FindByKey(ctx, key.Key)
	assert.False(t, exists, "soft-deleted keys are no longer found")

	assert.ErrorIs(t, store.Delete(ctx, uuid.NewString()), ErrKeyNotFound)
}

func TestPersistentKeyStore_ListByClient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupKeyStore(ctx, t)

	require.NoError(t, store.Add(ctx, newPersistedKey(t, "dashboard")))
	require.NoError(t, store.Add(ctx, newPersistedKey(t, "dashboard")))
	require.NoError(t, store.Add(ctx, newPersistedKey(t, "reporting")))

	keys, err := store.ListByClient(ctx, "dashboard")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	empty, err := store.ListByClient(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.ListByClient(ctx, "")
	assert.ErrorIs(t, err, ErrClientIDEmpty)
}
