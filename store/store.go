// Package store is the local relational cache. It holds the last server-seen
// copy of every entity so reads keep working when the network does not.
// Repositories write through to it on successful remote calls and fall back
// to it on failed ones.
package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pulsefeed/pulsefeed-go/model"
)

// Store bundles the per-entity caches over a single embedded SQLite database.
// Construct it once at process start and inject it; there is no package-level
// instance.
type Store struct {
	db       *gorm.DB
	notifier *notifier

	Users         *UserStore
	Posts         *PostStore
	Comments      *CommentStore
	Notifications *NotificationStore
}

// Open opens (and migrates) the cache database at path. Pass
// "file::memory:?cache=shared" for an ephemeral cache.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Post{}, &model.Comment{}, &model.Notification{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate cache database")
	}

	n := newNotifier()
	return &Store{
		db:            db,
		notifier:      n,
		Users:         &UserStore{db: db, notifier: n},
		Posts:         &PostStore{db: db, notifier: n},
		Comments:      &CommentStore{db: db, notifier: n},
		Notifications: &NotificationStore{db: db, notifier: n},
	}, nil
}

// ClearAll wipes every cached table. Used on logout.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, table := range []string{"posts", "users", "comments", "notifications"} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Wrapf(err, "clear table %s", table)
		}
		s.notifier.notify(table)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
