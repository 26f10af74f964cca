package persona

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	created, err := store.Create(ctx, &Persona{Name: "Luna", Favorability: 64})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 64, created.Favorability)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.Name)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCreateDefaultsFavorability(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	created, err := store.Create(ctx, &Persona{Name: "Luna", Favorability: 400})
	require.NoError(t, err)
	assert.Equal(t, DefaultFavorability, created.Favorability)
}

func TestStoreListSortedByName(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	for _, name := range []string{"Zoe", "Ada", "Mia"} {
		_, err := store.Create(ctx, &Persona{Name: name})
		require.NoError(t, err)
	}

	personas, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, personas, 3)
	assert.Equal(t, "Ada", personas[0].Name)
	assert.Equal(t, "Mia", personas[1].Name)
	assert.Equal(t, "Zoe", personas[2].Name)
}

func TestStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	created, err := store.Create(ctx, &Persona{Name: "Luna"})
	require.NoError(t, err)

	created.Name = "Luna II"
	require.NoError(t, store.Update(ctx, created))
	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luna II", got.Name)

	assert.ErrorIs(t, store.Update(ctx, &Persona{ID: "missing"}), ErrNotFound)

	require.NoError(t, store.Delete(ctx, created.ID))
	assert.ErrorIs(t, store.Delete(ctx, created.ID), ErrNotFound)
}

func TestStoreSetFavorability(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	created, err := store.Create(ctx, &Persona{Name: "Luna", Favorability: 50})
	require.NoError(t, err)

	require.NoError(t, store.SetFavorability(ctx, created.ID, 72))
	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 72, got.Favorability)

	assert.Error(t, store.SetFavorability(ctx, created.ID, 101), "out of range is rejected, not clamped")
	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 72, got.Favorability)

	assert.ErrorIs(t, store.SetFavorability(ctx, "missing", 10), ErrNotFound)
}

func TestStoreClonesResults(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	created, err := store.Create(ctx, &Persona{Name: "Luna", Profile: map[string]any{"likes": "tea"}})
	require.NoError(t, err)

	created.Profile["likes"] = "coffee"
	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "tea", got.Profile["likes"])
}
