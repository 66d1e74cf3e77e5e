package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed/pulsefeed-go/model"
)

func TestPostUpsertReplacesExistingRow(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, UserID: 2, Content: "old", LikesCount: 3}))
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, UserID: 2, Content: "new", LikesCount: 4}))

	post, err := s.Posts.ByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "new", post.Content)
	assert.Equal(t, 4, post.LikesCount)

	all, err := s.Posts.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPostByIDMissingReturnsNil(t *testing.T) {
	s := NewTestStore(t)

	post, err := s.Posts.ByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestSetLikedAdjustsCounter(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, LikesCount: 5}))

	require.NoError(t, s.Posts.SetLiked(ctx, 1, true))
	post, err := s.Posts.ByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)
	assert.Equal(t, 6, post.LikesCount)

	require.NoError(t, s.Posts.SetLiked(ctx, 1, false))
	post, err = s.Posts.ByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, post.IsLiked)
	assert.Equal(t, 5, post.LikesCount)
}

func TestSetLikedNeverGoesNegative(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, LikesCount: 0}))

	require.NoError(t, s.Posts.SetLiked(ctx, 1, false))
	post, err := s.Posts.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikesCount)
}

func TestBumpCommentsCountClamped(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, CommentsCount: 0}))

	require.NoError(t, s.Posts.BumpCommentsCount(ctx, 1, -1))
	post, err := s.Posts.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, post.CommentsCount)

	require.NoError(t, s.Posts.BumpCommentsCount(ctx, 1, 1))
	post, err = s.Posts.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, post.CommentsCount)
}

func TestByUserOrdersNewestFirst(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Posts.Upsert(ctx,
		model.Post{ID: 1, UserID: 7, CreatedAt: "2024-01-01T00:00:00Z"},
		model.Post{ID: 2, UserID: 7, CreatedAt: "2024-03-01T00:00:00Z"},
		model.Post{ID: 3, UserID: 8, CreatedAt: "2024-02-01T00:00:00Z"},
	))

	posts, err := s.Posts.ByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, 2, posts[0].ID)
	assert.Equal(t, 1, posts[1].ID)
}

func TestWatchAllEmitsOnWrite(t *testing.T) {
	s := NewTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := s.Posts.WatchAll(ctx)

	initial := <-stream
	assert.Empty(t, initial)

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, Content: "hello"}))

	select {
	case posts := <-stream:
		require.Len(t, posts, 1)
		assert.Equal(t, "hello", posts[0].Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}
}

func TestClearAllEmptiesEveryTable(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1}))
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 1, Username: "maya"}))
	require.NoError(t, s.Comments.Upsert(ctx, model.Comment{ID: 1, PostID: 1}))
	require.NoError(t, s.Notifications.Upsert(ctx, model.Notification{ID: 1, UserID: 1}))

	require.NoError(t, s.ClearAll(ctx))

	posts, err := s.Posts.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	user, err := s.Users.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, user)

	comments, err := s.Comments.ByPost(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, comments)

	notifications, err := s.Notifications.ByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestClearAllObservesCancellation(t *testing.T) {
	s := NewTestStore(t)
	require.NoError(t, s.Posts.Upsert(context.Background(), model.Post{ID: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.ClearAll(ctx))

	posts, err := s.Posts.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}
