package preferences

import (
	"context"
	"strconv"
)

// Session is the bundle of identity fields that together represent an
// authenticated client. The fields live as independent keys but share a
// lifecycle: written together on login, cleared together on logout.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       int
	Username     string
	Email        string
	FullName     string
}

// SaveAuthData persists the whole session plus a freshly captured last-login
// timestamp in one atomic edit. A partially written session is a defect, so
// this is the only write path that touches more than the access token.
func (p *UserPreferences) SaveAuthData(ctx context.Context, s Session) error {
	loginMillis := strconv.FormatInt(p.now().UnixMilli(), 10)
	return p.Apply(ctx, func(e *Edit) {
		e.Set(KeyAccessToken, s.AccessToken)
		e.Set(KeyRefreshToken, s.RefreshToken)
		e.Set(KeyUserID, strconv.Itoa(s.UserID))
		e.Set(KeyUsername, s.Username)
		e.Set(KeyEmail, s.Email)
		e.Set(KeyFullName, s.FullName)
		e.Set(KeyLastLoginTime, loginMillis)
	})
}

// UpdateAccessToken refreshes only the access token, after a token-refresh
// call. Everything else, the last-login timestamp included, stays put.
func (p *UserPreferences) UpdateAccessToken(ctx context.Context, token string) error {
	return p.Apply(ctx, func(e *Edit) {
		e.Set(KeyAccessToken, token)
	})
}

// ClearAuthData removes every session field atomically. The OTP staging keys
// are left alone, a logout must not cancel an in-flight phone verification.
func (p *UserPreferences) ClearAuthData(ctx context.Context) error {
	return p.Apply(ctx, func(e *Edit) {
		for _, key := range sessionKeys {
			e.Remove(key)
		}
	})
}

// AccessToken returns the current token, OK false when logged out.
func (p *UserPreferences) AccessToken(ctx context.Context) (Value, error) {
	return p.Get(ctx, KeyAccessToken)
}

// UserID returns the logged-in user's id. Unset or unparsable means logged
// out.
func (p *UserPreferences) UserID(ctx context.Context) (int, bool, error) {
	value, err := p.Get(ctx, KeyUserID)
	if err != nil || !value.OK {
		return 0, false, err
	}
	id, convErr := strconv.Atoi(value.Str)
	if convErr != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// ObserveAccessToken streams the access token; a logout shows up as an
// empty Value.
func (p *UserPreferences) ObserveAccessToken(ctx context.Context) <-chan Value {
	return p.Observe(ctx, KeyAccessToken)
}

func (p *UserPreferences) ObserveUsername(ctx context.Context) <-chan Value {
	return p.Observe(ctx, KeyUsername)
}

// ObserveRecentlyLoggedIn derives the "skip the login screen" boolean from
// the last-login timestamp stream.
func (p *UserPreferences) ObserveRecentlyLoggedIn(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		defer close(out)
		for value := range p.Observe(ctx, KeyLastLoginTime) {
			select {
			case out <- recentlyLoggedIn(value, p.now()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// IsRecentlyLoggedIn is the point-in-time form of ObserveRecentlyLoggedIn.
func (p *UserPreferences) IsRecentlyLoggedIn(ctx context.Context) (bool, error) {
	value, err := p.Get(ctx, KeyLastLoginTime)
	if err != nil {
		return false, err
	}
	return recentlyLoggedIn(value, p.now()), nil
}

// CurrentSession assembles the stored session from one consistent snapshot.
// OK is false when no access token is stored.
func (p *UserPreferences) CurrentSession(ctx context.Context) (Session, bool, error) {
	snapshot, err := p.Snapshot(ctx)
	if err != nil {
		return Session{}, false, err
	}
	token, ok := snapshot[KeyAccessToken]
	if !ok || token == "" {
		return Session{}, false, nil
	}
	userID, _ := strconv.Atoi(snapshot[KeyUserID])
	return Session{
		AccessToken:  token,
		RefreshToken: snapshot[KeyRefreshToken],
		UserID:       userID,
		Username:     snapshot[KeyUsername],
		Email:        snapshot[KeyEmail],
		FullName:     snapshot[KeyFullName],
	}, true, nil
}
