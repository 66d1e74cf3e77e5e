package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFallback() *FallbackRepository {
	return NewFallbackRepository(WithDelayRange(0, 0))
}

func TestFallbackFeedCoversSeedSet(t *testing.T) {
	f := newTestFallback()
	ctx := context.Background()

	feed, err := f.GetFeed(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, feed.Posts, len(samplePosts))
	assert.False(t, feed.HasMore)

	for _, entry := range feed.Posts {
		assert.NotZero(t, entry.Post.ID)
		assert.NotEmpty(t, entry.Post.Content)
		require.NotNil(t, entry.User)
		assert.NotEmpty(t, entry.User.Username)
		assert.Equal(t, entry.Post.LikesCount/10, entry.Post.SharesCount)
	}
}

func TestFallbackFeedPagination(t *testing.T) {
	f := newTestFallback()
	ctx := context.Background()

	first, err := f.GetFeed(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, first.Posts, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "2", first.NextCursor)

	second, err := f.GetFeed(ctx, 2, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.Posts[0].Post.ID, second.Posts[0].Post.ID)

	past, err := f.GetFeed(ctx, 2, 100)
	require.NoError(t, err)
	assert.Empty(t, past.Posts)
	assert.False(t, past.HasMore)
}

func TestFallbackFeedIsDeterministic(t *testing.T) {
	f := newTestFallback()
	ctx := context.Background()

	first, err := f.GetFeed(ctx, 5, 0)
	require.NoError(t, err)
	second, err := f.GetFeed(ctx, 5, 0)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Posts, second.Posts); diff != "" {
		t.Errorf("feed pages differ (-first +second):\n%s", diff)
	}
}

func TestFallbackCreatePost(t *testing.T) {
	f := newTestFallback()

	created, err := f.CreatePost(context.Background(), "hello offline world", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "hello offline world", created.Post.Content)
	assert.GreaterOrEqual(t, created.Post.ID, 1000)
	assert.Less(t, created.Post.ID, 10000)
	assert.Equal(t, "just now", created.Post.CreatedAt)
	require.NotNil(t, created.User)
}

func TestFallbackLoginRejectsBlankCredentials(t *testing.T) {
	f := newTestFallback()

	_, err := f.Login(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "required")
}

func TestFallbackLoginMintsDemoSession(t *testing.T) {
	f := newTestFallback()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	resp, err := f.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "testuser", resp.User.Username)
	assert.True(t, strings.HasPrefix(resp.AccessToken, "fake-jwt-token-"))
	assert.Contains(t, resp.AccessToken, "1717243200000")
}

func TestNewDemoSession(t *testing.T) {
	f := newTestFallback()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	resp := f.NewDemoSession("+15551234567")
	assert.Equal(t, "+15551234567@pulsefeed.com", resp.User.Email)
	assert.True(t, strings.HasPrefix(resp.User.Username, "user_"))
	assert.True(t, strings.HasPrefix(resp.AccessToken, "mock_access_token_"))
}

func TestSimulateNetworkDelayHonorsCancellation(t *testing.T) {
	f := NewFallbackRepository(WithDelayRange(5*time.Second, 5*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := f.GetFeed(ctx, 10, 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFallbackSharedAcrossGoroutines(t *testing.T) {
	f := newTestFallback()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				created, err := f.CreatePost(ctx, "racing", nil, "")
				if err != nil {
					t.Errorf("CreatePost: %v", err)
					return
				}
				if created.Post.ID < 1000 || created.Post.ID > 9999 {
					t.Errorf("post id %d outside demo range", created.Post.ID)
					return
				}
			}
		}()
	}
	wg.Wait()
}
