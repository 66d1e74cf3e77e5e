package server

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pulsefeed/pulsefeed-go/model"
)

// Server-only tables. The shared model package holds the wire entities; these
// three exist to answer "who follows whom", "who liked what" and "how do I
// log in", and never leave the server.

type Credential struct {
	UserID       int    `gorm:"primaryKey;column:user_id"`
	PasswordHash string `gorm:"column:password_hash"`
	PhoneNumber  string `gorm:"column:phone_number;index"`
}

func (Credential) TableName() string {
	return "credentials"
}

type Follow struct {
	FollowerID  int    `gorm:"primaryKey;column:follower_id"`
	FollowingID int    `gorm:"primaryKey;column:following_id"`
	CreatedAt   string `gorm:"column:created_at"`
}

func (Follow) TableName() string {
	return "follows"
}

type Like struct {
	PostID    int    `gorm:"primaryKey;column:post_id"`
	UserID    int    `gorm:"primaryKey;column:user_id"`
	CreatedAt string `gorm:"column:created_at"`
}

func (Like) TableName() string {
	return "likes"
}

// OpenDatabase connects to postgres when DATABASE_URL is set, otherwise to a
// local SQLite file so the dev server runs with zero setup.
func OpenDatabase() (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var db *gorm.DB
	var err error
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open("pulsefeed_server.db"), cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err := migrate(db); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Post{},
		&model.Comment{},
		&model.Notification{},
		&Credential{},
		&Follow{},
		&Like{},
	)
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// userWithCounts loads a user and fills in the derived fields: follower,
// following and post counts, plus IsFollowing relative to viewerID.
func userWithCounts(db *gorm.DB, userID, viewerID int) (*model.User, error) {
	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	var followers, following, posts int64
	db.Model(&Follow{}).Where("following_id = ?", userID).Count(&followers)
	db.Model(&Follow{}).Where("follower_id = ?", userID).Count(&following)
	db.Model(&model.Post{}).Where("user_id = ?", userID).Count(&posts)
	user.FollowersCount = int(followers)
	user.FollowingCount = int(following)
	user.PostsCount = int(posts)

	if viewerID != userID {
		var n int64
		db.Model(&Follow{}).
			Where("follower_id = ? AND following_id = ?", viewerID, userID).
			Count(&n)
		user.IsFollowing = n > 0
	}
	return &user, nil
}

func isLikedBy(db *gorm.DB, postID, userID int) bool {
	var n int64
	db.Model(&Like{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&n)
	return n > 0
}
