package repository

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/preferences"
	"github.com/pulsefeed/pulsefeed-go/store"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

// AuthRepository owns the session lifecycle: login, registration, phone OTP,
// token refresh and logout. Successful auth calls persist the whole session
// atomically before returning.
type AuthRepository struct {
	client   *api.Client
	prefs    *preferences.UserPreferences
	store    *store.Store
	fallback *FallbackRepository
}

// NewAuthRepository wires the repository. fallback may be nil; without it,
// offline login and OTP verification fail outright.
func NewAuthRepository(client *api.Client, prefs *preferences.UserPreferences, s *store.Store, fallback *FallbackRepository) *AuthRepository {
	return &AuthRepository{client: client, prefs: prefs, store: s, fallback: fallback}
}

func (r *AuthRepository) saveAuthData(ctx context.Context, resp *api.AuthResponse) error {
	return r.prefs.SaveAuthData(ctx, preferences.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		Username:     resp.User.Username,
		Email:        resp.User.Email,
		FullName:     resp.User.FullName,
	})
}

// Login validates input before any network is attempted, then authenticates.
// A transport failure with a generator configured yields a persisted demo
// session; a server rejection (wrong password) is surfaced as-is.
func (r *AuthRepository) Login(ctx context.Context, username, password string) (*api.AuthResponse, error) {
	if username == "" || password == "" {
		return nil, &ValidationError{Message: "username and password are required"}
	}

	resp, err := r.client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		if r.fallback == nil || !api.IsTransportError(err) {
			return nil, err
		}
		resp, err = r.fallback.Login(ctx, username, password)
		if err != nil {
			return nil, err
		}
		log.Log.Warn("backend unreachable, using demo login session")
	}

	if err := r.saveAuthData(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Register has no offline substitute by design: an unreachable backend fails
// the registration outright.
func (r *AuthRepository) Register(ctx context.Context, username, email, password, fullName string) (*api.AuthResponse, error) {
	if username == "" || email == "" || password == "" {
		return nil, &ValidationError{Message: "username, email and password are required"}
	}

	resp, err := r.client.Register(ctx, api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return nil, err
	}
	if err := r.saveAuthData(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RefreshToken exchanges the stored refresh token and persists only the new
// access token; identity fields and the last-login timestamp stay put.
func (r *AuthRepository) RefreshToken(ctx context.Context) (*api.AuthResponse, error) {
	session, ok, err := r.prefs.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || session.RefreshToken == "" {
		return nil, &ValidationError{Message: "no refresh token stored"}
	}

	resp, err := r.client.RefreshToken(ctx, api.RefreshTokenRequest{RefreshToken: session.RefreshToken})
	if err != nil {
		return nil, err
	}
	if err := r.prefs.UpdateAccessToken(ctx, resp.AccessToken); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendOTP stages a development code locally, then asks the backend to text
// the real one. An unreachable SMS service degrades to the staged code; the
// staged code is logged so a developer can complete the flow.
func (r *AuthRepository) SendOTP(ctx context.Context, phoneNumber string) error {
	if phoneNumber == "" {
		return &ValidationError{Message: "phone number is required"}
	}

	code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
	if err := r.prefs.StoreDevelopmentOTP(ctx, phoneNumber, code); err != nil {
		return err
	}
	log.Log.WithField("phone", phoneNumber).Infof("development OTP: %s", code)

	if err := r.client.SendOTP(ctx, api.SendOTPRequest{PhoneNumber: phoneNumber}); err != nil {
		log.Log.WithError(err).Warn("SMS service unavailable, falling back to development OTP")
		return sleepCtx(ctx, time.Second)
	}
	return nil
}

// VerifyOTP tries the backend first; failing that, it checks the staged
// development code. A locally verified code is single use: it is cleared
// before the demo session is minted and persisted.
func (r *AuthRepository) VerifyOTP(ctx context.Context, phoneNumber, code string) (*api.AuthResponse, error) {
	if code == "" {
		return nil, &ValidationError{Message: "verification code is required"}
	}

	resp, err := r.client.VerifyOTP(ctx, api.VerifyOTPRequest{PhoneNumber: phoneNumber, Code: code})
	if err == nil {
		if saveErr := r.saveAuthData(ctx, resp); saveErr != nil {
			return nil, saveErr
		}
		return resp, nil
	}

	if r.fallback == nil {
		return nil, err
	}
	staged, ok, stageErr := r.prefs.GetDevelopmentOTP(ctx, phoneNumber)
	if stageErr != nil {
		return nil, stageErr
	}
	if !ok || staged != code {
		return nil, err
	}
	if clearErr := r.prefs.ClearDevelopmentOTP(ctx); clearErr != nil {
		return nil, clearErr
	}
	if delayErr := sleepCtx(ctx, time.Second); delayErr != nil {
		return nil, delayErr
	}

	demo := r.fallback.NewDemoSession(phoneNumber)
	if saveErr := r.saveAuthData(ctx, demo); saveErr != nil {
		return nil, saveErr
	}
	return demo, nil
}

// Logout clears the session and every cached row; the cache holds the
// previous viewer's perspective and must not leak into the next session.
func (r *AuthRepository) Logout(ctx context.Context) error {
	if err := r.prefs.ClearAuthData(ctx); err != nil {
		return err
	}
	return r.store.ClearAll(ctx)
}

// IsLoggedIn reports whether an access token is stored.
func (r *AuthRepository) IsLoggedIn(ctx context.Context) (bool, error) {
	token, err := r.prefs.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token.OK && token.Str != "", nil
}

// ObserveAccessToken and friends re-expose the preference streams so the
// presentation layer has one dependency, not two.
func (r *AuthRepository) ObserveAccessToken(ctx context.Context) <-chan preferences.Value {
	return r.prefs.ObserveAccessToken(ctx)
}

func (r *AuthRepository) ObserveRecentlyLoggedIn(ctx context.Context) <-chan bool {
	return r.prefs.ObserveRecentlyLoggedIn(ctx)
}

func (r *AuthRepository) ObserveUsername(ctx context.Context) <-chan preferences.Value {
	return r.prefs.ObserveUsername(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
