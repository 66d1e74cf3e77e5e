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

func TestGetUserProfileServedFromCacheWhenOffline(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 7, Username: "cached_user"}))

	repo := NewUserRepository(deadClient(t), s)
	user, err := repo.GetUserProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "cached_user", user.Username)
}

func TestGetUserProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "User not found"})
	}))
	defer srv.Close()

	repo := NewUserRepository(api.NewClient(srv.URL), store.NewTestStore(t))
	_, err := repo.GetUserProfile(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowUserPatchesCachedTarget(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 7, Username: "target", FollowersCount: 5}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.FollowResponse{Message: "User followed successfully", IsFollowing: true})
	}))
	defer srv.Close()

	repo := NewUserRepository(api.NewClient(srv.URL), s)
	resp, err := repo.FollowUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, resp.IsFollowing)

	cached, err := s.Users.ByID(ctx, 7)
	require.NoError(t, err)
	assert.True(t, cached.IsFollowing)
	assert.Equal(t, 6, cached.FollowersCount)
}

func TestUnfollowUserClampsFollowerCount(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 7, FollowersCount: 0, IsFollowing: true}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.FollowResponse{Message: "User unfollowed successfully", IsFollowing: false})
	}))
	defer srv.Close()

	repo := NewUserRepository(api.NewClient(srv.URL), s)
	_, err := repo.UnfollowUser(ctx, 7)
	require.NoError(t, err)

	cached, err := s.Users.ByID(ctx, 7)
	require.NoError(t, err)
	assert.False(t, cached.IsFollowing)
	assert.Equal(t, 0, cached.FollowersCount)
}

func TestSearchUsersLocalFallback(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Users.Upsert(ctx,
		model.User{ID: 1, Username: "maya_codes", FullName: "Maya C"},
		model.User{ID: 2, Username: "other", FullName: "Somebody Else"},
	))

	repo := NewUserRepository(deadClient(t), s)
	users, err := repo.SearchUsers(ctx, "maya")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "maya_codes", users[0].Username)
}

func TestSearchUsersEmptyLocalPropagatesError(t *testing.T) {
	repo := NewUserRepository(deadClient(t), store.NewTestStore(t))

	_, err := repo.SearchUsers(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))
}

func TestGetNotificationsReplaysCacheForRecipient(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	postID := 42
	require.NoError(t, s.Notifications.Upsert(ctx, model.Notification{
		ID: 1, UserID: 9, Type: model.NotificationLike, ActorID: 7, PostID: &postID,
	}))
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 7, Username: "actor"}))
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 42, Content: "liked post"}))

	repo := NewUserRepository(deadClient(t), s)
	notifications, err := repo.GetNotifications(ctx, 9, 20, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationLike, notifications[0].Notification.Type)
	require.NotNil(t, notifications[0].Actor)
	assert.Equal(t, "actor", notifications[0].Actor.Username)
	require.NotNil(t, notifications[0].Post)
	assert.Equal(t, "liked post", notifications[0].Post.Content)
}

func TestMarkNotificationReadUpdatesCache(t *testing.T) {
	ctx := context.Background()
	s := store.NewTestStore(t)
	require.NoError(t, s.Notifications.Upsert(ctx, model.Notification{ID: 1, UserID: 9}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.MessageResponse{Message: "Notification marked as read"})
	}))
	defer srv.Close()

	repo := NewUserRepository(api.NewClient(srv.URL), s)
	require.NoError(t, repo.MarkNotificationRead(ctx, 1))

	count, err := s.Notifications.UnreadCount(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
