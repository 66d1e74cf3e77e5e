package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/preferences"
	"github.com/pulsefeed/pulsefeed-go/store"
)

func newTestPrefs(t *testing.T) *preferences.UserPreferences {
	t.Helper()
	prefs, err := preferences.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { prefs.Close() })
	return prefs
}

func authSuccessServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.AuthResponse{
			User:         &model.User{ID: 42, Username: "maya", Email: "maya@example.com", FullName: "Maya C"},
			AccessToken:  "server-access",
			RefreshToken: "server-refresh",
		})
	}))
}

func TestLoginRejectsBlankCredentialsBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	repo := NewAuthRepository(api.NewClient(srv.URL), newTestPrefs(t), store.NewTestStore(t), newTestFallback())

	_, err := repo.Login(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, ErrorMessage(err), "required")
	assert.False(t, called, "validation must short-circuit the remote call")
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	srv := authSuccessServer(t)
	defer srv.Close()

	prefs := newTestPrefs(t)
	repo := NewAuthRepository(api.NewClient(srv.URL), prefs, store.NewTestStore(t), nil)
	ctx := context.Background()

	resp, err := repo.Login(ctx, "maya", "secret")
	require.NoError(t, err)
	assert.Equal(t, "maya", resp.User.Username)

	session, ok, err := prefs.CurrentSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "server-access", session.AccessToken)
	assert.Equal(t, "server-refresh", session.RefreshToken)
	assert.Equal(t, 42, session.UserID)

	recent, err := prefs.IsRecentlyLoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, recent)
}

func TestLoginTransportFailureMintsDemoSession(t *testing.T) {
	prefs := newTestPrefs(t)
	repo := NewAuthRepository(deadClient(t), prefs, store.NewTestStore(t), newTestFallback())
	ctx := context.Background()

	resp, err := repo.Login(ctx, "demo", "secret")
	require.NoError(t, err)
	assert.Equal(t, "testuser", resp.User.Username)

	session, ok, err := prefs.CurrentSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resp.AccessToken, session.AccessToken)
}

func TestLoginServerRejectionIsNotFallbackWorthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
	}))
	defer srv.Close()

	prefs := newTestPrefs(t)
	repo := NewAuthRepository(api.NewClient(srv.URL), prefs, store.NewTestStore(t), newTestFallback())

	_, err := repo.Login(context.Background(), "maya", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", ErrorMessage(err))

	_, ok, err := prefs.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "rejected login must not persist a session")
}

func TestRefreshTokenUpdatesOnlyAccessToken(t *testing.T) {
	prefs := newTestPrefs(t)
	ctx := context.Background()
	require.NoError(t, prefs.SaveAuthData(ctx, preferences.Session{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		UserID:       42,
		Username:     "maya",
	}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.RefreshTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "old-refresh", req.RefreshToken)
		json.NewEncoder(w).Encode(api.AuthResponse{
			User:         &model.User{ID: 42, Username: "maya"},
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
		})
	}))
	defer srv.Close()

	repo := NewAuthRepository(api.NewClient(srv.URL), prefs, store.NewTestStore(t), nil)
	_, err := repo.RefreshToken(ctx)
	require.NoError(t, err)

	session, ok, err := prefs.CurrentSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new-access", session.AccessToken)
	assert.Equal(t, "old-refresh", session.RefreshToken, "stored refresh token stays")
	assert.Equal(t, "maya", session.Username)
}

func TestVerifyOTPLocalCodeIsSingleUse(t *testing.T) {
	prefs := newTestPrefs(t)
	repo := NewAuthRepository(deadClient(t), prefs, store.NewTestStore(t), newTestFallback())
	ctx := context.Background()

	require.NoError(t, prefs.StoreDevelopmentOTP(ctx, "+15551234567", "123456"))

	resp, err := repo.VerifyOTP(ctx, "+15551234567", "123456")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567@pulsefeed.com", resp.User.Email)

	session, ok, err := prefs.CurrentSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resp.AccessToken, session.AccessToken)

	// A second verification with the same code must fail: the staged code
	// was consumed.
	_, err = repo.VerifyOTP(ctx, "+15551234567", "123456")
	require.Error(t, err)
}

func TestVerifyOTPWrongCodePropagatesOriginalError(t *testing.T) {
	prefs := newTestPrefs(t)
	repo := NewAuthRepository(deadClient(t), prefs, store.NewTestStore(t), newTestFallback())
	ctx := context.Background()

	require.NoError(t, prefs.StoreDevelopmentOTP(ctx, "+15551234567", "123456"))

	_, err := repo.VerifyOTP(ctx, "+15551234567", "999999")
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))

	// The staged code survives a failed attempt.
	code, ok, err := prefs.GetDevelopmentOTP(ctx, "+15551234567")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123456", code)
}

func TestLogoutClearsSessionAndCache(t *testing.T) {
	prefs := newTestPrefs(t)
	s := store.NewTestStore(t)
	repo := NewAuthRepository(deadClient(t), prefs, s, nil)
	ctx := context.Background()

	require.NoError(t, prefs.SaveAuthData(ctx, preferences.Session{AccessToken: "tok", UserID: 1}))
	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, Content: "cached"}))

	require.NoError(t, repo.Logout(ctx))

	_, ok, err := prefs.CurrentSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	posts, err := s.Posts.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
