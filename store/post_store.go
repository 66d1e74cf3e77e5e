package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pulsefeed/pulsefeed-go/model"
)

type PostStore struct {
	db       *gorm.DB
	notifier *notifier
}

// Upsert writes posts through with replace-on-conflict semantics keyed by id,
// so a re-fetched post overwrites the stale cached row.
func (s *PostStore) Upsert(ctx context.Context, posts ...model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&posts).Error
	if err != nil {
		return errors.Wrap(err, "upsert posts")
	}
	s.notifier.notify("posts")
	return nil
}

// ByID returns the cached post or nil when the id has never been seen.
func (s *PostStore) ByID(ctx context.Context, id int) (*model.Post, error) {
	var post model.Post
	err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query post by id")
	}
	return &post, nil
}

func (s *PostStore) All(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, errors.Wrap(err, "query all posts")
}

func (s *PostStore) ByUser(ctx context.Context, userID int) ([]model.Post, error) {
	var posts []model.Post
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, errors.Wrap(err, "query posts by user")
}

func (s *PostStore) Search(ctx context.Context, query string) ([]model.Post, error) {
	var posts []model.Post
	err := s.db.WithContext(ctx).
		Where("content LIKE ?", "%"+query+"%").
		Order("created_at DESC").
		Find(&posts).Error
	return posts, errors.Wrap(err, "search posts")
}

// SetLiked patches the viewer-relative like state of a cached post. The
// counter adjustment clamps at zero: repeated unlikes must never drive the
// cached count negative. Missing rows are a no-op, not an error, because the
// remote call has already succeeded by the time this runs.
func (s *PostStore) SetLiked(ctx context.Context, id int, liked bool) error {
	delta := 1
	if !liked {
		delta = -1
	}
	err := s.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_liked":    liked,
			"likes_count": gorm.Expr("MAX(0, likes_count + ?)", delta),
		}).Error
	if err != nil {
		return errors.Wrap(err, "patch post like state")
	}
	s.notifier.notify("posts")
	return nil
}

// BumpCommentsCount adjusts the denormalized comment counter, clamping at 0.
func (s *PostStore) BumpCommentsCount(ctx context.Context, id int, delta int) error {
	err := s.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Update("comments_count", gorm.Expr("MAX(0, comments_count + ?)", delta)).Error
	if err != nil {
		return errors.Wrap(err, "patch post comments count")
	}
	s.notifier.notify("posts")
	return nil
}

func (s *PostStore) Delete(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Delete(&model.Post{}, "id = ?", id).Error
	if err != nil {
		return errors.Wrap(err, "delete post")
	}
	s.notifier.notify("posts")
	return nil
}

// WatchAll streams the full cached feed, newest first, re-emitting after
// every post write.
func (s *PostStore) WatchAll(ctx context.Context) <-chan []model.Post {
	return watch(ctx, s.notifier, "posts", s.All)
}

func (s *PostStore) WatchByUser(ctx context.Context, userID int) <-chan []model.Post {
	return watch(ctx, s.notifier, "posts", func(ctx context.Context) ([]model.Post, error) {
		return s.ByUser(ctx, userID)
	})
}
