package community

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	posts, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	ts := time.Now()
	store.now = func() time.Time { return ts }
	first, err := store.Create(ctx, &Post{UserID: "u1", UserName: "Ana", Title: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, ts.UnixMilli(), first.Timestamp)
	assert.NotNil(t, first.Comments)
	assert.Zero(t, first.Likes)

	store.now = func() time.Time { return ts.Add(time.Minute) }
	second, err := store.Create(ctx, &Post{UserID: "u2", UserName: "Ben", Title: "second"})
	require.NoError(t, err)

	posts, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID, "newest first")
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestStoreFillsDefaultsOnRead(t *testing.T) {
	dir := t.TempDir()
	legacy := map[string]any{
		"posts": []map[string]any{
			{"id": "old-1", "userId": "u1", "userName": "Ana", "title": "legacy", "timestamp": 123},
		},
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, storeFileName), data, 0o644))

	store := NewStore(dir)
	posts, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.NotNil(t, posts[0].Comments)
	assert.Zero(t, posts[0].CommentCount)
	assert.Zero(t, posts[0].Likes)
	assert.False(t, posts[0].IsRecommended)
	assert.False(t, posts[0].IsManuallyHot)
}

func TestStoreLikeAndComment(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	created, err := store.Create(ctx, &Post{UserID: "u1", UserName: "Ana", Title: "t"})
	require.NoError(t, err)

	liked, err := store.Like(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)
	liked, err = store.Like(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, liked.Likes)

	commented, err := store.AddComment(ctx, created.ID, Comment{UserID: "u2", UserName: "Ben", Text: "nice"})
	require.NoError(t, err)
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, 1, commented.CommentCount)
	assert.NotEmpty(t, commented.Comments[0].ID)
	assert.NotZero(t, commented.Comments[0].Timestamp)

	_, err = store.Like(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFlags(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	created, err := store.Create(ctx, &Post{UserID: "u1", UserName: "Ana", Title: "t"})
	require.NoError(t, err)

	p, err := store.SetRecommended(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, p.IsRecommended)

	p, err = store.SetHot(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, p.IsManuallyHot)

	p, err = store.SetRecommended(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, p.IsRecommended)
	assert.True(t, p.IsManuallyHot, "flags are independent")
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	created, err := store.Create(ctx, &Post{UserID: "u1", UserName: "Ana", Title: "t", UserAvatarURL: "/uploads/user_avatars/a.png"})
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/user_avatars/a.png", deleted.UserAvatarURL)

	_, err = store.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	posts, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewStore(dir)
	created, err := store.Create(ctx, &Post{UserID: "u1", UserName: "Ana", Title: "t"})
	require.NoError(t, err)

	reopened := NewStore(dir)
	posts, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, created.ID, posts[0].ID)
}
