package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pulsefeed/pulsefeed-go/model"
)

type UserStore struct {
	db       *gorm.DB
	notifier *notifier
}

func (s *UserStore) Upsert(ctx context.Context, users ...model.User) error {
	if len(users) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&users).Error
	if err != nil {
		return errors.Wrap(err, "upsert users")
	}
	s.notifier.notify("users")
	return nil
}

func (s *UserStore) ByID(ctx context.Context, id int) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query user by id")
	}
	return &user, nil
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query user by username")
	}
	return &user, nil
}

// Search matches against username and full name, the same fields the server
// search endpoint considers.
func (s *UserStore) Search(ctx context.Context, query string) ([]model.User, error) {
	var users []model.User
	pattern := "%" + query + "%"
	err := s.db.WithContext(ctx).
		Where("username LIKE ? OR full_name LIKE ?", pattern, pattern).
		Find(&users).Error
	return users, errors.Wrap(err, "search users")
}

func (s *UserStore) Delete(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id).Error
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	s.notifier.notify("users")
	return nil
}

func (s *UserStore) WatchByID(ctx context.Context, id int) <-chan *model.User {
	return watch(ctx, s.notifier, "users", func(ctx context.Context) (*model.User, error) {
		return s.ByID(ctx, id)
	})
}
