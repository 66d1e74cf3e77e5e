package server

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

const otpTTL = 5 * time.Minute

// OTPStore keeps issued phone verification codes. Backed by redis when one is
// reachable, otherwise by an in-process map so the dev server still works
// standalone. Codes expire after otpTTL and are consumed on first use.
type OTPStore struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]localOTP
}

type localOTP struct {
	code      string
	expiresAt time.Time
}

// NewOTPStore connects to redisURL; an empty URL or unreachable redis falls
// back to the in-memory store.
func NewOTPStore(redisURL string) *OTPStore {
	s := &OTPStore{local: make(map[string]localOTP)}
	if redisURL == "" {
		return s
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Log.WithError(err).Warn("bad REDIS_URL, using in-memory OTP store")
		return s
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Log.WithError(err).Warn("redis unreachable, using in-memory OTP store")
		rdb.Close()
		return s
	}
	s.rdb = rdb
	return s
}

func otpKey(phoneNumber string) string {
	return fmt.Sprintf("otp:%s", phoneNumber)
}

// Issue generates, stores and returns a six digit code for phoneNumber,
// replacing any outstanding one.
func (s *OTPStore) Issue(ctx context.Context, phoneNumber string) (string, error) {
	code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, otpKey(phoneNumber), code, otpTTL).Err(); err != nil {
			return "", err
		}
		return code, nil
	}
	s.mu.Lock()
	s.local[phoneNumber] = localOTP{code: code, expiresAt: time.Now().Add(otpTTL)}
	s.mu.Unlock()
	return code, nil
}

// Verify reports whether code matches the outstanding one for phoneNumber,
// consuming it on success.
func (s *OTPStore) Verify(ctx context.Context, phoneNumber, code string) (bool, error) {
	if s.rdb != nil {
		stored, err := s.rdb.Get(ctx, otpKey(phoneNumber)).Result()
		if err == redis.Nil {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if stored != code {
			return false, nil
		}
		s.rdb.Del(ctx, otpKey(phoneNumber))
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.local[phoneNumber]
	if !ok || time.Now().After(entry.expiresAt) || entry.code != code {
		return false, nil
	}
	delete(s.local, phoneNumber)
	return true, nil
}

func (s *OTPStore) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}
