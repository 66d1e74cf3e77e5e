package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pulsefeed/pulsefeed-go/model"
)

type CommentStore struct {
	db       *gorm.DB
	notifier *notifier
}

func (s *CommentStore) Upsert(ctx context.Context, comments ...model.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&comments).Error
	if err != nil {
		return errors.Wrap(err, "upsert comments")
	}
	s.notifier.notify("comments")
	return nil
}

// ByPost returns a post's comments oldest first, the order threads render in.
func (s *CommentStore) ByPost(ctx context.Context, postID int) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, errors.Wrap(err, "query comments by post")
}

func (s *CommentStore) ByID(ctx context.Context, id int) (*model.Comment, error) {
	var comment model.Comment
	err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query comment by id")
	}
	return &comment, nil
}

func (s *CommentStore) DeleteByPost(ctx context.Context, postID int) error {
	err := s.db.WithContext(ctx).Delete(&model.Comment{}, "post_id = ?", postID).Error
	if err != nil {
		return errors.Wrap(err, "delete comments by post")
	}
	s.notifier.notify("comments")
	return nil
}

func (s *CommentStore) WatchByPost(ctx context.Context, postID int) <-chan []model.Comment {
	return watch(ctx, s.notifier, "comments", func(ctx context.Context) ([]model.Comment, error) {
		return s.ByPost(ctx, postID)
	})
}
