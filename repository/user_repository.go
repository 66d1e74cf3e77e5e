package repository

import (
	"context"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/store"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

// UserRepository covers profiles, the social graph and notifications.
type UserRepository struct {
	client *api.Client
	store  *store.Store
}

func NewUserRepository(client *api.Client, s *store.Store) *UserRepository {
	return &UserRepository{client: client, store: s}
}

func (r *UserRepository) cacheUsers(ctx context.Context, users ...model.User) {
	if err := r.store.Users.Upsert(ctx, users...); err != nil {
		log.Log.WithError(err).Warn("failed to cache users")
	}
}

// GetProfile fetches the viewer's own profile and writes it through.
func (r *UserRepository) GetProfile(ctx context.Context) (*model.User, error) {
	user, err := r.client.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	r.cacheUsers(ctx, *user)
	return user, nil
}

// GetUserProfile fetches a profile, falling back to the cached row. A 404
// with no cached row is ErrNotFound.
func (r *UserRepository) GetUserProfile(ctx context.Context, userID int) (*model.User, error) {
	user, err := r.client.GetUserProfile(ctx, userID)
	if err == nil {
		r.cacheUsers(ctx, *user)
		return user, nil
	}

	cached, cacheErr := r.store.Users.ByID(ctx, userID)
	if cacheErr == nil && cached != nil {
		return cached, nil
	}
	if api.StatusOf(err) == 404 {
		return nil, ErrNotFound
	}
	return nil, err
}

// UpdateProfile sends only the changed fields and caches the server's
// resulting profile.
func (r *UserRepository) UpdateProfile(ctx context.Context, fullName, bio, avatar *string) (*model.User, error) {
	user, err := r.client.UpdateProfile(ctx, api.UpdateProfileRequest{
		FullName: fullName,
		Bio:      bio,
		Avatar:   avatar,
	})
	if err != nil {
		return nil, err
	}
	r.cacheUsers(ctx, *user)
	return user, nil
}

// FollowUser records the follow remotely, then patches the cached target
// (isFollowing plus follower count) optimistically.
func (r *UserRepository) FollowUser(ctx context.Context, userID int) (*api.FollowResponse, error) {
	resp, err := r.client.FollowUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.patchFollowState(ctx, userID, true)
	return resp, nil
}

func (r *UserRepository) UnfollowUser(ctx context.Context, userID int) (*api.FollowResponse, error) {
	resp, err := r.client.UnfollowUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.patchFollowState(ctx, userID, false)
	return resp, nil
}

// patchFollowState adjusts the cached row if present; the counter clamps at
// zero like every other optimistic counter.
func (r *UserRepository) patchFollowState(ctx context.Context, userID int, following bool) {
	cached, err := r.store.Users.ByID(ctx, userID)
	if err != nil || cached == nil {
		return
	}
	delta := 1
	if !following {
		delta = -1
	}
	cached.IsFollowing = following
	cached.FollowersCount += delta
	if cached.FollowersCount < 0 {
		cached.FollowersCount = 0
	}
	r.cacheUsers(ctx, *cached)
}

// GetFollowers caches the returned profiles on success; there is no local
// follower-relation table, so a failure propagates.
func (r *UserRepository) GetFollowers(ctx context.Context, userID int) ([]model.User, error) {
	users, err := r.client.GetFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cacheUsers(ctx, users...)
	return users, nil
}

func (r *UserRepository) GetFollowing(ctx context.Context, userID int) ([]model.User, error) {
	users, err := r.client.GetFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cacheUsers(ctx, users...)
	return users, nil
}

// SearchUsers falls back to a local search over cached profiles. An empty
// local result is not a substitute, the original failure surfaces instead.
func (r *UserRepository) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	users, err := r.client.SearchUsers(ctx, query, 20)
	if err == nil {
		r.cacheUsers(ctx, users...)
		return users, nil
	}

	local, localErr := r.store.Users.Search(ctx, query)
	if localErr == nil && len(local) > 0 {
		return local, nil
	}
	return nil, err
}

// GetNotifications caches the notification rows (plus actors and posts) on
// success and replays the cached set for the given recipient on failure.
func (r *UserRepository) GetNotifications(ctx context.Context, userID, limit, offset int) ([]model.NotificationWithDetails, error) {
	resp, err := r.client.GetNotifications(ctx, limit, offset)
	if err == nil {
		rows := make([]model.Notification, 0, len(resp))
		for _, n := range resp {
			rows = append(rows, n.Notification)
			if n.Actor != nil {
				r.cacheUsers(ctx, *n.Actor)
			}
			if n.Post != nil {
				if cacheErr := r.store.Posts.Upsert(ctx, *n.Post); cacheErr != nil {
					log.Log.WithError(cacheErr).Warn("failed to cache notification post")
				}
			}
		}
		if cacheErr := r.store.Notifications.Upsert(ctx, rows...); cacheErr != nil {
			log.Log.WithError(cacheErr).Warn("failed to cache notifications")
		}
		return resp, nil
	}

	cached, cacheErr := r.store.Notifications.ByUser(ctx, userID)
	if cacheErr == nil && len(cached) > 0 {
		out := make([]model.NotificationWithDetails, 0, len(cached))
		for _, n := range cached {
			actor, _ := r.store.Users.ByID(ctx, n.ActorID)
			var post *model.Post
			if n.PostID != nil {
				post, _ = r.store.Posts.ByID(ctx, *n.PostID)
			}
			out = append(out, model.NotificationWithDetails{Notification: n, Actor: actor, Post: post})
		}
		return out, nil
	}
	return nil, err
}

// MarkNotificationRead marks remotely then locally. The local mark is
// best-effort once the server has acknowledged.
func (r *UserRepository) MarkNotificationRead(ctx context.Context, notificationID int) error {
	if err := r.client.MarkNotificationRead(ctx, notificationID); err != nil {
		return err
	}
	if err := r.store.Notifications.MarkRead(ctx, notificationID); err != nil {
		log.Log.WithError(err).Warn("failed to mark cached notification read")
	}
	return nil
}

// WatchUser streams a cached profile.
func (r *UserRepository) WatchUser(ctx context.Context, userID int) <-chan *model.User {
	return r.store.Users.WatchByID(ctx, userID)
}

// WatchUnreadCount feeds the notification badge from the cache.
func (r *UserRepository) WatchUnreadCount(ctx context.Context, userID int) <-chan int {
	return r.store.Notifications.WatchUnreadCount(ctx, userID)
}
