package api

import "github.com/pulsefeed/pulsefeed-go/model"

// Request and response bodies for the /api/v1 surface. Field names follow the
// server's snake_case wire format.

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type AuthResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

type CreatePostRequest struct {
	Content   string   `json:"content"`
	MediaURLs []string `json:"media_urls,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

// UpdateProfileRequest carries only the fields being changed; nil means
// "leave untouched".
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type FeedResponse struct {
	Posts      []model.PostWithUser `json:"posts"`
	NextCursor string               `json:"next_cursor,omitempty"`
	HasMore    bool                 `json:"has_more"`
}

type FollowResponse struct {
	Message     string `json:"message"`
	IsFollowing bool   `json:"is_following"`
}

type LikeResponse struct {
	IsLiked    bool `json:"is_liked"`
	LikesCount int  `json:"likes_count"`
}

type UploadResponse struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
