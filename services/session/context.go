package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nahio/models"
	"nahio/services/identity"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrProfileUnavailable means the profile could not be loaded and the user was signed out.
	ErrProfileUnavailable = errors.New("profile unavailable")
	ErrNotInitialized     = errors.New("session context not initialized")
	ErrDisposed           = errors.New("session context disposed")
)

// ProfileLoader reads the records a session is built from.
type ProfileLoader interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetProfile(ctx context.Context, uid string, userType models.UserType) (*models.Profile, error)
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Credentials *identity.Credentials `json:"credentials"`
	State       *State                `json:"session"`
}

// Context tracks per-user session state driven by the gateway's auth events.
// A session is authenticated only when the user's profile could be loaded;
// a failed profile load signs the user out.
type Context struct {
	Gateway  identity.Gateway
	Profiles ProfileLoader
	Store    Store
	TTL      time.Duration
	Logger   *zap.Logger

	mu          sync.Mutex
	initialized bool
	disposed    bool
	unsubscribe func()
}

func New(gw identity.Gateway, profiles ProfileLoader, store Store, ttl time.Duration, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{Gateway: gw, Profiles: profiles, Store: store, TTL: ttl, Logger: logger}
}

// Init subscribes to auth-state notifications. Calling it twice is a no-op.
func (c *Context) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if c.initialized {
		return nil
	}
	c.unsubscribe = c.Gateway.Subscribe(c.onAuthEvent)
	c.initialized = true
	c.Logger.Info("Session context initialized")
	return nil
}

// Dispose unsubscribes from the gateway; the context rejects further use.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.disposed = true
}

func (c *Context) active() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.disposed:
		return ErrDisposed
	case !c.initialized:
		return ErrNotInitialized
	}
	return nil
}

func (c *Context) onAuthEvent(ctx context.Context, event identity.AuthEvent) {
	if event.UID == "" {
		return
	}
	if !event.SignedIn {
		if err := c.Store.Delete(ctx, event.UID); err != nil {
			c.Logger.Warn("Failed to clear session state", zap.String("userId", event.UID), zap.Error(err))
		}
		return
	}
	if _, err := c.Refresh(ctx, event.UID); err != nil {
		c.Logger.Info("Session not established", zap.String("userId", event.UID), zap.Error(err))
	}
}

// Refresh rebuilds the session of uid from the profile store.
func (c *Context) Refresh(ctx context.Context, uid string) (*State, error) {
	if err := c.Store.Put(ctx, uid, State{Loading: true}, c.TTL); err != nil {
		return nil, fmt.Errorf("session: failed to store state: %w", err)
	}

	user, err := c.Profiles.GetUser(ctx, uid)
	if err != nil {
		return nil, c.failClosed(ctx, uid, err)
	}
	profile, err := c.Profiles.GetProfile(ctx, uid, user.UserType)
	if err != nil {
		return nil, c.failClosed(ctx, uid, err)
	}

	st := State{User: user, Profile: profile, Authenticated: true}
	if err := c.Store.Put(ctx, uid, st, c.TTL); err != nil {
		return nil, fmt.Errorf("session: failed to store state: %w", err)
	}
	return &st, nil
}

func (c *Context) failClosed(ctx context.Context, uid string, cause error) error {
	c.Logger.Warn("Profile load failed, signing out", zap.String("userId", uid), zap.Error(cause))
	if err := c.Store.Delete(ctx, uid); err != nil {
		c.Logger.Warn("Failed to clear session state", zap.String("userId", uid), zap.Error(err))
	}
	if err := c.Gateway.SignOut(ctx, uid); err != nil {
		c.Logger.Error("Forced sign-out failed", zap.String("userId", uid), zap.Error(err))
	}
	return fmt.Errorf("%w: %v", ErrProfileUnavailable, cause)
}

// Login signs in through the gateway. It succeeds only when the resulting
// auth event produced an authenticated session.
func (c *Context) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := c.active(); err != nil {
		return nil, err
	}
	creds, err := c.Gateway.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	st, err := c.Store.Get(ctx, creds.UID)
	if err != nil {
		return nil, fmt.Errorf("session: failed to read state: %w", err)
	}
	if st == nil || !st.Authenticated {
		return nil, ErrProfileUnavailable
	}
	return &LoginResult{Credentials: creds, State: st}, nil
}

func (c *Context) Logout(ctx context.Context, uid string) error {
	if err := c.active(); err != nil {
		return err
	}
	if err := c.Gateway.SignOut(ctx, uid); err != nil {
		return err
	}
	return c.Store.Delete(ctx, uid)
}

// Current returns the authenticated state of uid.
func (c *Context) Current(ctx context.Context, uid string) (*State, error) {
	if err := c.active(); err != nil {
		return nil, err
	}
	st, err := c.Store.Get(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("session: failed to read state: %w", err)
	}
	if st == nil || !st.Authenticated {
		return nil, ErrNotAuthenticated
	}
	return st, nil
}

// Authenticate resolves a bearer ID token to a session, rebuilding the
// state when none is stored.
func (c *Context) Authenticate(ctx context.Context, idToken string) (*State, error) {
	if err := c.active(); err != nil {
		return nil, err
	}
	uid, err := c.Gateway.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	st, err := c.Store.Get(ctx, uid)
	if err != nil {
		c.Logger.Warn("Session state unreadable, rebuilding", zap.String("userId", uid), zap.Error(err))
	}
	if st != nil && st.Authenticated {
		return st, nil
	}
	return c.Refresh(ctx, uid)
}
