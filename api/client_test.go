package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed/pulsefeed-go/model"
)

func TestBearerTokenAttachedPerRequest(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(model.User{ID: 1})
	}))
	defer srv.Close()

	token := "first"
	client := NewClient(srv.URL, WithTokenSource(func() string { return token }))

	_, err := client.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", got)

	// The token source is consulted on every call, so a rotation takes
	// effect without rebuilding the client.
	token = "second"
	_, err = client.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", got)
}

func TestServerErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Username or email already exists"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Register(context.Background(), RegisterRequest{Username: "dupe"})
	require.Error(t, err)

	assert.True(t, IsServerError(err))
	assert.False(t, IsTransportError(err))
	assert.Equal(t, http.StatusConflict, StatusOf(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Username or email already exists", apiErr.Message)
}

func TestTransportErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetFeed(context.Background(), 20, 0)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsServerError(err))
	assert.Equal(t, 0, StatusOf(err))
}

func TestPaginationQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/posts/feed", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "30", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(FeedResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetFeed(context.Background(), 10, 30)
	require.NoError(t, err)
}

func TestSearchUsersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/search", r.URL.Path)
		assert.Equal(t, "maya", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode([]model.User{{ID: 1, Username: "maya_codes"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	users, err := client.SearchUsers(context.Background(), "maya", 20)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "maya_codes", users[0].Username)
}

func TestNonJSONErrorBodyStillYieldsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}
