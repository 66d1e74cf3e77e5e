package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// MediaURLs is stored as a JSON array in a single column so the same struct
// serves both the wire format and the cache row.
type MediaURLs []string

func (m *MediaURLs) Scan(value interface{}) error {
	if value == nil {
		*m = MediaURLs{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.Errorf("cannot scan %T into MediaURLs", value)
	}
}

func (m MediaURLs) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "[]", nil
	}
	return json.Marshal(m)
}

// Post is a feed entry. LikesCount/CommentsCount/SharesCount are denormalized
// server-side counters; IsLiked is relative to the viewer. Timestamps stay
// strings end to end because the fallback generator emits values like
// "just now" that are display text, not parseable instants.
type Post struct {
	ID            int       `json:"id" gorm:"primaryKey;column:id"`
	UserID        int       `json:"user_id" gorm:"column:user_id;index"`
	Content       string    `json:"content" gorm:"column:content"`
	MediaURLs     MediaURLs `json:"media_urls" gorm:"column:media_urls;type:text"`
	MediaType     string    `json:"media_type" gorm:"column:media_type"`
	LikesCount    int       `json:"likes_count" gorm:"column:likes_count"`
	CommentsCount int       `json:"comments_count" gorm:"column:comments_count"`
	SharesCount   int       `json:"shares_count" gorm:"column:shares_count"`
	CreatedAt     string    `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     string    `json:"updated_at" gorm:"column:updated_at"`
	IsLiked       bool      `json:"is_liked" gorm:"column:is_liked"`
}

func (Post) TableName() string {
	return "posts"
}

// PostWithUser is the composite the feed endpoints return, with the author
// embedded so the client never renders a post whose author it cannot resolve.
type PostWithUser struct {
	Post Post  `json:"post"`
	User *User `json:"user"`
}
