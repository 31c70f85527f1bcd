package identity

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthEvent is an auth-state change: a user signed in, or signed out.
type AuthEvent struct {
	UID      string
	SignedIn bool
}

// Listener receives auth-state changes synchronously, on the caller's goroutine.
type Listener func(ctx context.Context, event AuthEvent)

// Credentials are returned by a successful sign-in.
type Credentials struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Gateway is the identity provider: credentials, tokens and auth-state notifications.
type Gateway interface {
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	// SignOut revokes the user's sessions and notifies listeners.
	SignOut(ctx context.Context, uid string) error
	// VerifyIDToken returns the uid of a valid, unrevoked ID token.
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
	CreateUser(ctx context.Context, email, password string) (string, error)
	DeleteUser(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
	Subscribe(l Listener) (unsubscribe func())
}

// broadcaster implements Subscribe and fan-out for gateways.
type broadcaster struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
}

func (b *broadcaster) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]Listener)
	}
	id := b.next
	b.next++
	b.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// signOut publishes the signed-out event only once revoke succeeded, so local
// session state is never dropped while the provider still honors the tokens.
func (b *broadcaster) signOut(ctx context.Context, uid string, revoke func(context.Context, string) error) error {
	if err := revoke(ctx, uid); err != nil {
		return err
	}
	b.publish(ctx, AuthEvent{UID: uid})
	return nil
}

func (b *broadcaster) publish(ctx context.Context, event AuthEvent) {
	b.mu.RLock()
	ls := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.RUnlock()

	for _, l := range ls {
		l(ctx, event)
	}
}
