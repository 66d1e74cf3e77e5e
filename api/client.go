// Package api is the typed client for the PulseFeed REST API. Every method
// maps to one endpoint, takes a context, and returns either a decoded body or
// an error the repositories can classify (transport vs server-rejected).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/pulsefeed/pulsefeed-go/model"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies the current access token, empty when logged out.
type TokenSource func() string

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource attaches a bearer-token supplier consulted per request, so
// a token refresh takes effect without rebuilding the client.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do runs one request/response cycle. Transport failures come back wrapped,
// non-2xx responses come back as *Error with the server's message when the
// body carries one.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

// decodeErrorMessage pulls the human-readable message out of an error body.
// The server writes {"error": ...}; older builds wrote {"message": ...}.
func decodeErrorMessage(body io.Reader) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Message
}

func pagination(limit, offset int) url.Values {
	return url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}
}

// --- Auth ---

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendOTP(ctx context.Context, req SendOTPRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/send-otp", nil, req, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/verify-otp", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Users ---

func (c *Client) GetProfile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/me", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserProfile(ctx context.Context, userID int) (*model.User, error) {
	var user model.User
	path := fmt.Sprintf("/api/v1/users/%d", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) FollowUser(ctx context.Context, userID int) (*FollowResponse, error) {
	var resp FollowResponse
	path := fmt.Sprintf("/api/v1/users/%d/follow", userID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UnfollowUser(ctx context.Context, userID int) (*FollowResponse, error) {
	var resp FollowResponse
	path := fmt.Sprintf("/api/v1/users/%d/follow", userID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetFollowers(ctx context.Context, userID int) ([]model.User, error) {
	var users []model.User
	path := fmt.Sprintf("/api/v1/users/%d/followers", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetFollowing(ctx context.Context, userID int) ([]model.User, error) {
	var users []model.User
	path := fmt.Sprintf("/api/v1/users/%d/following", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	var users []model.User
	values := url.Values{"q": []string{query}, "limit": []string{strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/search", values, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// --- Posts ---

func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*model.PostWithUser, error) {
	var resp model.PostWithUser
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetFeed(ctx context.Context, limit, offset int) (*FeedResponse, error) {
	var resp FeedResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/feed", pagination(limit, offset), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetPost(ctx context.Context, postID int) (*model.PostWithUser, error) {
	var resp model.PostWithUser
	path := fmt.Sprintf("/api/v1/posts/%d", postID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) LikePost(ctx context.Context, postID int) (*LikeResponse, error) {
	var resp LikeResponse
	path := fmt.Sprintf("/api/v1/posts/%d/like", postID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UnlikePost(ctx context.Context, postID int) (*LikeResponse, error) {
	var resp LikeResponse
	path := fmt.Sprintf("/api/v1/posts/%d/like", postID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetComments(ctx context.Context, postID int) ([]model.CommentWithUser, error) {
	var comments []model.CommentWithUser
	path := fmt.Sprintf("/api/v1/posts/%d/comments", postID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, postID int, req CreateCommentRequest) (*model.CommentWithUser, error) {
	var comment model.CommentWithUser
	path := fmt.Sprintf("/api/v1/posts/%d/comments", postID)
	if err := c.do(ctx, http.MethodPost, path, nil, req, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) GetUserPosts(ctx context.Context, userID, limit, offset int) (*FeedResponse, error) {
	var resp FeedResponse
	path := fmt.Sprintf("/api/v1/posts/user/%d", userID)
	if err := c.do(ctx, http.MethodGet, path, pagination(limit, offset), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Notifications ---

func (c *Client) GetNotifications(ctx context.Context, limit, offset int) ([]model.NotificationWithDetails, error) {
	var notifications []model.NotificationWithDetails
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications", pagination(limit, offset), nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int) error {
	path := fmt.Sprintf("/api/v1/notifications/%d/read", notificationID)
	return c.do(ctx, http.MethodPut, path, nil, nil, nil)
}

// --- Uploads ---

// UploadMedia posts a multipart form with the file under field "media".
func (c *Client) UploadMedia(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", filename)
	if err != nil {
		return nil, errors.Wrap(err, "build multipart form")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, errors.Wrap(err, "copy upload content")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/uploads/media", &buf)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "POST /api/v1/uploads/media")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
	}
	var upload UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return nil, errors.Wrap(err, "decode upload response")
	}
	return &upload, nil
}
