package repository

import (
	"context"
	"io"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/store"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

// PostRepository serves the feed, posts and comments with the
// fetch-with-local-fallback protocol: remote first, write-through on success,
// cache (then synthetic generator, when configured) on failure.
type PostRepository struct {
	client   *api.Client
	store    *store.Store
	fallback *FallbackRepository
}

// NewPostRepository wires the repository. fallback may be nil, in which case
// failed reads surface once the cache is also empty.
func NewPostRepository(client *api.Client, s *store.Store, fallback *FallbackRepository) *PostRepository {
	return &PostRepository{client: client, store: s, fallback: fallback}
}

// cachePostsWithUsers writes a feed page through to the local cache. Cache
// write failures are logged, not surfaced: the server data is already in hand
// and the caller should get it.
func (r *PostRepository) cachePostsWithUsers(ctx context.Context, posts []model.PostWithUser) {
	rows := make([]model.Post, 0, len(posts))
	users := make([]model.User, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, p.Post)
		if p.User != nil {
			users = append(users, *p.User)
		}
	}
	if err := r.store.Posts.Upsert(ctx, rows...); err != nil {
		log.Log.WithError(err).Warn("failed to cache posts")
	}
	if err := r.store.Users.Upsert(ctx, users...); err != nil {
		log.Log.WithError(err).Warn("failed to cache post authors")
	}
}

// cachedFeed rebuilds a feed page from cached rows, joining each post to its
// cached author when one exists. The rows are of unknown staleness; no
// staleness tag is surfaced (a known limitation of this design).
func (r *PostRepository) cachedFeed(ctx context.Context, posts []model.Post, limit, offset int) (*api.FeedResponse, error) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(posts) {
		end = len(posts)
	}

	page := make([]model.PostWithUser, 0, end-offset)
	for _, post := range posts[offset:end] {
		user, err := r.store.Users.ByID(ctx, post.UserID)
		if err != nil {
			return nil, err
		}
		page = append(page, model.PostWithUser{Post: post, User: user})
	}
	return &api.FeedResponse{Posts: page, HasMore: end < len(posts)}, nil
}

// GetFeed fetches a feed page. On remote success the page is written through
// to the cache; on remote failure the cached feed is replayed, then the
// synthetic generator, then the original error.
func (r *PostRepository) GetFeed(ctx context.Context, limit, offset int) (*api.FeedResponse, error) {
	resp, err := r.client.GetFeed(ctx, limit, offset)
	if err == nil {
		r.cachePostsWithUsers(ctx, resp.Posts)
		return resp, nil
	}

	cached, cacheErr := r.store.Posts.All(ctx)
	if cacheErr == nil && len(cached) > 0 {
		if page, pageErr := r.cachedFeed(ctx, cached, limit, offset); pageErr == nil && page != nil {
			log.Log.WithError(err).Debug("feed served from cache")
			return page, nil
		}
	}
	if r.fallback != nil {
		return r.fallback.GetFeed(ctx, limit, offset)
	}
	return nil, err
}

// GetUserPosts is GetFeed scoped to one author.
func (r *PostRepository) GetUserPosts(ctx context.Context, userID, limit, offset int) (*api.FeedResponse, error) {
	resp, err := r.client.GetUserPosts(ctx, userID, limit, offset)
	if err == nil {
		r.cachePostsWithUsers(ctx, resp.Posts)
		return resp, nil
	}

	cached, cacheErr := r.store.Posts.ByUser(ctx, userID)
	if cacheErr == nil && len(cached) > 0 {
		if page, pageErr := r.cachedFeed(ctx, cached, limit, offset); pageErr == nil && page != nil {
			return page, nil
		}
	}
	if r.fallback != nil {
		return r.fallback.GetFeed(ctx, limit, offset)
	}
	return nil, err
}

// GetPost fetches one post. A remote failure falls back to the cached row;
// ErrNotFound only when neither side has it and the remote said 404.
func (r *PostRepository) GetPost(ctx context.Context, postID int) (*model.PostWithUser, error) {
	resp, err := r.client.GetPost(ctx, postID)
	if err == nil {
		r.cachePostsWithUsers(ctx, []model.PostWithUser{*resp})
		return resp, nil
	}

	cached, cacheErr := r.store.Posts.ByID(ctx, postID)
	if cacheErr == nil && cached != nil {
		user, _ := r.store.Users.ByID(ctx, cached.UserID)
		return &model.PostWithUser{Post: *cached, User: user}, nil
	}
	if api.StatusOf(err) == 404 {
		return nil, ErrNotFound
	}
	return nil, err
}

// CreatePost publishes a post and writes the server's copy through to the
// cache. With the backend unreachable and a generator configured, a synthetic
// post is returned (and cached) instead.
func (r *PostRepository) CreatePost(ctx context.Context, content string, mediaURLs []string, mediaType string) (*model.PostWithUser, error) {
	resp, err := r.client.CreatePost(ctx, api.CreatePostRequest{
		Content:   content,
		MediaURLs: mediaURLs,
		MediaType: mediaType,
	})
	if err == nil {
		r.cachePostsWithUsers(ctx, []model.PostWithUser{*resp})
		return resp, nil
	}

	if r.fallback != nil && api.IsTransportError(err) {
		synthetic, fbErr := r.fallback.CreatePost(ctx, content, mediaURLs, mediaType)
		if fbErr != nil {
			return nil, err
		}
		r.cachePostsWithUsers(ctx, []model.PostWithUser{*synthetic})
		return synthetic, nil
	}
	return nil, err
}

// LikePost records a like remotely, then patches the cached row optimistically
// (isLiked, likesCount+1). A transport failure with a generator configured is
// reported as success; two in-flight opposite mutations can still revert each
// other, an accepted inconsistency of the optimistic design.
func (r *PostRepository) LikePost(ctx context.Context, postID int) error {
	_, err := r.client.LikePost(ctx, postID)
	if err != nil {
		if r.fallback == nil || !api.IsTransportError(err) {
			return err
		}
		if fbErr := r.fallback.LikePost(ctx, postID); fbErr != nil {
			return err
		}
	}
	return r.store.Posts.SetLiked(ctx, postID, true)
}

// UnlikePost is the undo: a network failure still yields a local best-effort
// success, because stale optimistic state beats a stuck like button. The
// cached counter clamps at zero.
func (r *PostRepository) UnlikePost(ctx context.Context, postID int) error {
	if _, err := r.client.UnlikePost(ctx, postID); err != nil && !api.IsTransportError(err) {
		return err
	}
	return r.store.Posts.SetLiked(ctx, postID, false)
}

// GetComments fetches a post's thread, caching it on success and replaying
// the cached thread on failure. No synthetic comments exist.
func (r *PostRepository) GetComments(ctx context.Context, postID int) ([]model.CommentWithUser, error) {
	resp, err := r.client.GetComments(ctx, postID)
	if err == nil {
		rows := make([]model.Comment, 0, len(resp))
		users := make([]model.User, 0, len(resp))
		for _, c := range resp {
			rows = append(rows, c.Comment)
			if c.User != nil {
				users = append(users, *c.User)
			}
		}
		if cacheErr := r.store.Comments.Upsert(ctx, rows...); cacheErr != nil {
			log.Log.WithError(cacheErr).Warn("failed to cache comments")
		}
		if cacheErr := r.store.Users.Upsert(ctx, users...); cacheErr != nil {
			log.Log.WithError(cacheErr).Warn("failed to cache comment authors")
		}
		return resp, nil
	}

	cached, cacheErr := r.store.Comments.ByPost(ctx, postID)
	if cacheErr == nil && len(cached) > 0 {
		out := make([]model.CommentWithUser, 0, len(cached))
		for _, comment := range cached {
			user, _ := r.store.Users.ByID(ctx, comment.UserID)
			out = append(out, model.CommentWithUser{Comment: comment, User: user})
		}
		return out, nil
	}
	return nil, err
}

// CreateComment posts a comment, then writes it through and bumps the cached
// post's comment counter. No fallback: an unreachable backend fails the
// creation outright.
func (r *PostRepository) CreateComment(ctx context.Context, postID int, content string) (*model.CommentWithUser, error) {
	resp, err := r.client.CreateComment(ctx, postID, api.CreateCommentRequest{Content: content})
	if err != nil {
		return nil, err
	}
	if cacheErr := r.store.Comments.Upsert(ctx, resp.Comment); cacheErr != nil {
		log.Log.WithError(cacheErr).Warn("failed to cache comment")
	}
	if cacheErr := r.store.Posts.BumpCommentsCount(ctx, postID, 1); cacheErr != nil {
		log.Log.WithError(cacheErr).Warn("failed to bump cached comment count")
	}
	return resp, nil
}

// UploadMedia has no offline substitute; bytes must reach the server.
func (r *PostRepository) UploadMedia(ctx context.Context, filename string, content io.Reader) (*api.UploadResponse, error) {
	return r.client.UploadMedia(ctx, filename, content)
}

// WatchFeed streams the cached feed, newest first, re-emitting on every
// cache write.
func (r *PostRepository) WatchFeed(ctx context.Context) <-chan []model.Post {
	return r.store.Posts.WatchAll(ctx)
}

func (r *PostRepository) WatchUserPosts(ctx context.Context, userID int) <-chan []model.Post {
	return r.store.Posts.WatchByUser(ctx, userID)
}
