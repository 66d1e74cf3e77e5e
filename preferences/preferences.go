// Package preferences is the durable key-value store for the authentication
// session and the development OTP staging area. Values are small scalars
// written in batched atomic edits and read either point-in-time or as live
// streams that replay the latest value on subscribe.
package preferences

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	KeyAccessToken   = "access_token"
	KeyRefreshToken  = "refresh_token"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyEmail         = "email"
	KeyFullName      = "full_name"
	KeyLastLoginTime = "last_login_time"
	KeyDevOTP        = "dev_otp"
	KeyDevPhone      = "dev_phone"
)

// recentLoginWindow is how long after the last login the client may skip
// straight past the auth screens. The boundary is inclusive.
const recentLoginWindow = 15 * 24 * time.Hour

var sessionKeys = []string{
	KeyAccessToken, KeyRefreshToken, KeyUserID,
	KeyUsername, KeyEmail, KeyFullName, KeyLastLoginTime,
}

type kvRow struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (kvRow) TableName() string {
	return "preferences"
}

// Value is an optional string: OK is false when the key is unset.
type Value struct {
	Str string
	OK  bool
}

// UserPreferences wraps the key-value database. Construct once and inject;
// storage errors propagate to the caller uncaught.
type UserPreferences struct {
	db *gorm.DB

	mu       sync.Mutex
	watchers map[string]map[int]chan struct{}
	nextID   int

	// now is swapped in tests to pin the recent-login boundary.
	now func() time.Time
}

// Open opens (and migrates) the preferences database at path.
func Open(path string) (*UserPreferences, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open preferences database")
	}
	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate preferences database")
	}
	return &UserPreferences{
		db:       db,
		watchers: make(map[string]map[int]chan struct{}),
		now:      time.Now,
	}, nil
}

func (p *UserPreferences) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Edit batches field assignments and removals.
type Edit struct {
	sets    map[string]string
	removes []string
}

func (e *Edit) Set(key, value string) {
	e.sets[key] = value
}

func (e *Edit) Remove(key string) {
	e.removes = append(e.removes, key)
}

// Apply runs fn and commits every staged assignment and removal in a single
// transaction. A concurrent Snapshot observes either none or all of the edit.
// Watchers of touched keys are notified after commit.
func (p *UserPreferences) Apply(ctx context.Context, fn func(e *Edit)) error {
	edit := &Edit{sets: make(map[string]string)}
	fn(edit)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range edit.sets {
			row := kvRow{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		for _, key := range edit.removes {
			if err := tx.Delete(&kvRow{}, "key = ?", key).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "apply preference edit")
	}

	for key := range edit.sets {
		p.notify(key)
	}
	for _, key := range edit.removes {
		p.notify(key)
	}
	return nil
}

// Get reads a single key. OK is false when the key is unset.
func (p *UserPreferences) Get(ctx context.Context, key string) (Value, error) {
	var row kvRow
	err := p.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Value{}, nil
	}
	if err != nil {
		return Value{}, errors.Wrap(err, "read preference")
	}
	return Value{Str: row.Value, OK: true}, nil
}

// Snapshot reads every stored key in one query, so mid-edit states are never
// observable.
func (p *UserPreferences) Snapshot(ctx context.Context) (map[string]string, error) {
	var rows []kvRow
	if err := p.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "snapshot preferences")
	}
	snapshot := make(map[string]string, len(rows))
	for _, row := range rows {
		snapshot[row.Key] = row.Value
	}
	return snapshot, nil
}

// Observe streams the value of key: the current value immediately, then a new
// one after every write or removal. The channel closes when ctx is done.
func (p *UserPreferences) Observe(ctx context.Context, key string) <-chan Value {
	out := make(chan Value, 1)
	ticks, unsubscribe := p.subscribe(key)

	go func() {
		defer close(out)
		defer unsubscribe()

		send := func() bool {
			value, err := p.Get(ctx, key)
			if err != nil {
				return false
			}
			select {
			case out <- value:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				if !send() {
					return
				}
			}
		}
	}()

	return out
}

func (p *UserPreferences) subscribe(key string) (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchers[key] == nil {
		p.watchers[key] = make(map[int]chan struct{})
	}
	id := p.nextID
	p.nextID++
	ch := make(chan struct{}, 1)
	p.watchers[key][id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers[key], id)
	}
}

func (p *UserPreferences) notify(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// recentlyLoggedIn is the 15-day rule: absent or malformed timestamps are
// "not recent", never an error.
func recentlyLoggedIn(lastLogin Value, now time.Time) bool {
	if !lastLogin.OK || lastLogin.Str == "" {
		return false
	}
	millis, err := strconv.ParseInt(lastLogin.Str, 10, 64)
	if err != nil {
		return false
	}
	return now.Sub(time.UnixMilli(millis)) <= recentLoginWindow
}
