package model

// User is a profile row as the API returns it and as the local cache stores
// it. FollowersCount, FollowingCount, PostsCount and IsFollowing are computed
// server side; IsFollowing is relative to the viewer, so the cache only ever
// holds the last-seen viewer's perspective.
type User struct {
	ID             int    `json:"id" gorm:"primaryKey;column:id"`
	Username       string `json:"username" gorm:"column:username"`
	Email          string `json:"email" gorm:"column:email"`
	FullName       string `json:"full_name" gorm:"column:full_name"`
	Bio            string `json:"bio" gorm:"column:bio"`
	Avatar         string `json:"avatar" gorm:"column:avatar"`
	CoverImage     string `json:"cover_image" gorm:"column:cover_image"`
	IsVerified     bool   `json:"is_verified" gorm:"column:is_verified"`
	CreatedAt      string `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      string `json:"updated_at" gorm:"column:updated_at"`
	FollowersCount int    `json:"followers_count" gorm:"column:followers_count"`
	FollowingCount int    `json:"following_count" gorm:"column:following_count"`
	PostsCount     int    `json:"posts_count" gorm:"column:posts_count"`
	IsFollowing    bool   `json:"is_following" gorm:"column:is_following"`
}

func (User) TableName() string {
	return "users"
}
