package repository

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
)

// FallbackRepository produces plausible synthetic responses when the network
// is unavailable, so demos and offline sessions keep working. Every operation
// sleeps a random 500–1500 ms first to preserve the perceived latency of a
// real request.
type FallbackRepository struct {
	minDelay time.Duration
	maxDelay time.Duration
	now      func() time.Time

	// rng is shared by every operation; one instance serves all
	// repositories, so draws go through randIntn / randInt63n.
	mu  sync.Mutex
	rng *rand.Rand
}

type FallbackOption func(*FallbackRepository)

// WithDelayRange overrides the artificial latency window; tests set it to
// zero.
func WithDelayRange(min, max time.Duration) FallbackOption {
	return func(f *FallbackRepository) {
		f.minDelay = min
		f.maxDelay = max
	}
}

func NewFallbackRepository(opts ...FallbackOption) *FallbackRepository {
	f := &FallbackRepository{
		minDelay: 500 * time.Millisecond,
		maxDelay: 1500 * time.Millisecond,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FallbackRepository) randIntn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Intn(n)
}

func (f *FallbackRepository) randInt63n(n int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Int63n(n)
}

// simulateNetworkDelay sleeps a uniformly random duration in the configured
// window, or returns early when the caller gives up.
func (f *FallbackRepository) simulateNetworkDelay(ctx context.Context) error {
	d := f.minDelay
	if f.maxDelay > f.minDelay {
		d += time.Duration(f.randInt63n(int64(f.maxDelay - f.minDelay)))
	}
	if d == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FallbackRepository) sampleUserByID(id int) sampleUser {
	for _, u := range sampleUsers {
		if u.ID == id {
			return u
		}
	}
	return sampleUsers[0]
}

func toModelUser(u sampleUser) *model.User {
	return &model.User{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Username + "@example.com",
		FullName:       u.FullName,
		Bio:            u.Bio,
		Avatar:         u.Avatar,
		IsVerified:     u.IsVerified,
		CreatedAt:      "2023-01-01T00:00:00Z",
		UpdatedAt:      "2023-01-01T00:00:00Z",
		FollowersCount: u.Followers,
		FollowingCount: u.Following,
		PostsCount:     u.Posts,
	}
}

// GetFeed paginates over the seed set. hasMore reflects whether the requested
// window runs past the end; sharesCount is synthesized as likes/10 since the
// seeds predate that counter.
func (f *FallbackRepository) GetFeed(ctx context.Context, limit, offset int) (*api.FeedResponse, error) {
	if err := f.simulateNetworkDelay(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(samplePosts) {
		return &api.FeedResponse{Posts: []model.PostWithUser{}}, nil
	}

	end := offset + limit
	if end > len(samplePosts) {
		end = len(samplePosts)
	}

	posts := make([]model.PostWithUser, 0, end-offset)
	for _, seed := range samplePosts[offset:end] {
		var mediaURLs model.MediaURLs
		mediaType := ""
		if seed.ImageURL != "" {
			mediaURLs = model.MediaURLs{seed.ImageURL}
			mediaType = "image"
		}
		shares := seed.Likes / 10
		if shares < 0 {
			shares = 0
		}
		posts = append(posts, model.PostWithUser{
			Post: model.Post{
				ID:            seed.ID,
				UserID:        seed.UserID,
				Content:       seed.Content,
				MediaURLs:     mediaURLs,
				MediaType:     mediaType,
				LikesCount:    seed.Likes,
				CommentsCount: seed.Comments,
				SharesCount:   shares,
				IsLiked:       seed.IsLiked,
				CreatedAt:     seed.Timestamp,
				UpdatedAt:     seed.Timestamp,
			},
			User: toModelUser(f.sampleUserByID(seed.UserID)),
		})
	}

	hasMore := end < len(samplePosts)
	resp := &api.FeedResponse{Posts: posts, HasMore: hasMore}
	if hasMore {
		resp.NextCursor = fmt.Sprintf("%d", end)
	}
	return resp, nil
}

// CreatePost synthesizes a just-created post with an id in the reserved demo
// range and randomized engagement counts.
func (f *FallbackRepository) CreatePost(ctx context.Context, content string, mediaURLs []string, mediaType string) (*model.PostWithUser, error) {
	if err := f.simulateNetworkDelay(ctx); err != nil {
		return nil, err
	}
	post := model.Post{
		ID:            1000 + f.randIntn(9000),
		UserID:        sampleUsers[0].ID,
		Content:       content,
		MediaURLs:     model.MediaURLs(mediaURLs),
		MediaType:     mediaType,
		LikesCount:    f.randIntn(1000),
		CommentsCount: f.randIntn(100),
		SharesCount:   f.randIntn(50),
		CreatedAt:     "just now",
		UpdatedAt:     "just now",
	}
	return &model.PostWithUser{Post: post, User: toModelUser(sampleUsers[0])}, nil
}

// LikePost acknowledges the like without a backend; the repository applies
// the optimistic cache patch either way.
func (f *FallbackRepository) LikePost(ctx context.Context, postID int) error {
	return f.simulateNetworkDelay(ctx)
}

// Login synthesizes a demo session. Blank credentials are a hard failure,
// not a fallback-worthy condition.
func (f *FallbackRepository) Login(ctx context.Context, username, password string) (*api.AuthResponse, error) {
	if err := f.simulateNetworkDelay(ctx); err != nil {
		return nil, err
	}
	if username == "" || password == "" {
		return nil, &ValidationError{Message: "username and password are required"}
	}

	now := f.now()
	user := &model.User{
		ID:             1,
		Username:       "testuser",
		Email:          username,
		FullName:       "Test User",
		Bio:            "This is a test user account",
		Avatar:         "👤",
		IsVerified:     true,
		CreatedAt:      "2023-01-01T00:00:00Z",
		UpdatedAt:      "2023-01-01T00:00:00Z",
		FollowersCount: 1250,
		FollowingCount: 890,
	}
	return &api.AuthResponse{
		User:         user,
		AccessToken:  fmt.Sprintf("fake-jwt-token-%d", now.UnixMilli()),
		RefreshToken: fmt.Sprintf("fake-refresh-token-%d", now.UnixMilli()),
	}, nil
}

// NewDemoSession builds the synthetic session minted after a locally
// verified OTP.
func (f *FallbackRepository) NewDemoSession(phoneNumber string) *api.AuthResponse {
	now := f.now()
	user := &model.User{
		ID:        1,
		Username:  fmt.Sprintf("user_%d", now.UnixMilli()),
		Email:     phoneNumber + "@pulsefeed.com",
		FullName:  "New User",
		CreatedAt: now.UTC().Format(time.RFC3339),
		UpdatedAt: now.UTC().Format(time.RFC3339),
	}
	return &api.AuthResponse{
		User:         user,
		AccessToken:  fmt.Sprintf("mock_access_token_%d", now.UnixMilli()),
		RefreshToken: fmt.Sprintf("mock_refresh_token_%d", now.UnixMilli()),
	}
}
