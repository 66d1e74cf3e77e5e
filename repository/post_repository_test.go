package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/store"
)

// deadClient points at a closed listener so every call is a transport
// failure.
func deadClient(t *testing.T) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return api.NewClient(srv.URL)
}

func feedPage(posts ...model.PostWithUser) api.FeedResponse {
	return api.FeedResponse{Posts: posts, HasMore: false}
}

func serverPost(id, userID int, content string) model.PostWithUser {
	return model.PostWithUser{
		Post: model.Post{
			ID:         id,
			UserID:     userID,
			Content:    content,
			LikesCount: 10,
			CreatedAt:  "2024-05-01T00:00:00Z",
		},
		User: &model.User{ID: userID, Username: "author"},
	}
}

func TestGetFeedWritesThroughToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/posts/feed", r.URL.Path)
		json.NewEncoder(w).Encode(feedPage(serverPost(1, 7, "first"), serverPost(2, 7, "second")))
	}))
	defer srv.Close()

	s := store.NewTestStore(t)
	repo := NewPostRepository(api.NewClient(srv.URL), s, nil)
	ctx := context.Background()

	feed, err := repo.GetFeed(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 2)

	cached, err := s.Posts.All(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	author, err := s.Users.ByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "author", author.Username)
}

func TestGetFeedReplaysCacheWhenServerDies(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)

	// First fetch succeeds and populates the cache.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(feedPage(serverPost(1, 7, "survives offline")))
	}))
	repo := NewPostRepository(api.NewClient(srv.URL), s, nil)
	_, err := repo.GetFeed(ctx, 20, 0)
	require.NoError(t, err)

	// Second fetch against a dead server replays the cached page.
	srv.Close()
	feed, err := repo.GetFeed(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "survives offline", feed.Posts[0].Post.Content)
	require.NotNil(t, feed.Posts[0].User)
	assert.Equal(t, "author", feed.Posts[0].User.Username)
}

func TestGetFeedFallsBackToGeneratorWhenCacheEmpty(t *testing.T) {
	s := store.NewTestStore(t)
	repo := NewPostRepository(deadClient(t), s, newTestFallback())

	feed, err := repo.GetFeed(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, feed.Posts)
}

func TestGetFeedPropagatesErrorWithoutFallback(t *testing.T) {
	s := store.NewTestStore(t)
	repo := NewPostRepository(deadClient(t), s, nil)

	_, err := repo.GetFeed(context.Background(), 20, 0)
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))
}

func TestGetPostNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Post not found"})
	}))
	defer srv.Close()

	s := store.NewTestStore(t)
	repo := NewPostRepository(api.NewClient(srv.URL), s, nil)

	_, err := repo.GetPost(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPostServedFromCacheWhenOffline(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 42, UserID: 7, Content: "cached"}))

	repo := NewPostRepository(deadClient(t), s, nil)
	post, err := repo.GetPost(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "cached", post.Post.Content)
}

func TestCreatePostSyntheticOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	repo := NewPostRepository(deadClient(t), s, newTestFallback())

	created, err := repo.CreatePost(ctx, "offline post", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "offline post", created.Post.Content)
	assert.GreaterOrEqual(t, created.Post.ID, 1000)

	// The synthetic post lands in the cache like a real one.
	cached, err := s.Posts.ByID(ctx, created.Post.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "offline post", cached.Content)
}

func TestCreatePostServerRejectionIsNotFallbackWorthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "post content is required"})
	}))
	defer srv.Close()

	s := store.NewTestStore(t)
	repo := NewPostRepository(api.NewClient(srv.URL), s, newTestFallback())

	_, err := repo.CreatePost(context.Background(), "", nil, "")
	require.Error(t, err)
	assert.Equal(t, "post content is required", ErrorMessage(err))
}

func TestLikePostPatchesCachedRow(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 42, LikesCount: 10, IsLiked: false}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/posts/42/like", r.URL.Path)
		json.NewEncoder(w).Encode(api.LikeResponse{IsLiked: true, LikesCount: 11})
	}))
	defer srv.Close()

	repo := NewPostRepository(api.NewClient(srv.URL), s, nil)
	require.NoError(t, repo.LikePost(ctx, 42))

	post, err := s.Posts.ByID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)
	assert.Equal(t, 11, post.LikesCount)
}

func TestLikePostOfflineStillPatchesCache(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 42, LikesCount: 10}))

	repo := NewPostRepository(deadClient(t), s, newTestFallback())
	require.NoError(t, repo.LikePost(ctx, 42))

	post, err := s.Posts.ByID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)
	assert.Equal(t, 11, post.LikesCount)
}

func TestUnlikePostClampsAtZeroAndSwallowsTransportFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 42, LikesCount: 0, IsLiked: true}))

	repo := NewPostRepository(deadClient(t), s, nil)
	require.NoError(t, repo.UnlikePost(ctx, 42))

	post, err := s.Posts.ByID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, post.IsLiked)
	assert.Equal(t, 0, post.LikesCount)
}

func TestGetCommentsReplaysCacheOnFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Comments.Upsert(ctx, model.Comment{ID: 1, PostID: 42, UserID: 7, Content: "kept"}))
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 7, Username: "author"}))

	repo := NewPostRepository(deadClient(t), s, nil)
	comments, err := repo.GetComments(ctx, 42)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "kept", comments[0].Comment.Content)
	require.NotNil(t, comments[0].User)
	assert.Equal(t, "author", comments[0].User.Username)
}

func TestCreateCommentBumpsCachedCounter(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 42, CommentsCount: 2}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.CommentWithUser{
			Comment: model.Comment{ID: 9, PostID: 42, UserID: 7, Content: "nice"},
			User:    &model.User{ID: 7, Username: "author"},
		})
	}))
	defer srv.Close()

	repo := NewPostRepository(api.NewClient(srv.URL), s, nil)
	comment, err := repo.CreateComment(ctx, 42, "nice")
	require.NoError(t, err)
	assert.Equal(t, 9, comment.Comment.ID)

	post, err := s.Posts.ByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, post.CommentsCount)
}
