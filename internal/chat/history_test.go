package chat

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()

	history, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = store.Append(ctx, "p-1",
		Message{ID: "m1", Role: RoleUser, Content: "hello"},
		Message{ID: "m2", Role: RoleModel, Content: "hi"},
	)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Conversations are isolated per persona.
	other, err := store.Load(ctx, "p-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	// Loaded slices are copies; mutating one must not leak back.
	history[0].Content = "mutated"
	reloaded, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", reloaded[0].Content)

	require.NoError(t, store.Clear(ctx, "p-1"))
	history, err = store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisHistoryStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisHistoryStore(client, nil)

	history, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, history, "missing conversation loads as empty, not an error")

	history, err = store.Append(ctx, "p-1",
		Message{ID: "m1", Role: RoleUser, Content: "hello"},
	)
	require.NoError(t, err)
	require.Len(t, history, 1)

	history, err = store.Append(ctx, "p-1",
		Message{ID: "m2", Role: RoleModel, Content: "hi"},
	)
	require.NoError(t, err)
	require.Len(t, history, 2)

	reloaded, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, reloaded, 2)
	assert.Equal(t, "hello", reloaded[0].Content)
	assert.Equal(t, RoleModel, reloaded[1].Role)

	require.NoError(t, store.Clear(ctx, "p-1"))
	history, err = store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisHistoryStoreNilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewRedisHistoryStore(nil, nil) })
}
