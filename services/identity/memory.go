package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryUser struct {
	uid      string
	email    string
	password string
}

// MemoryGateway is an in-process identity provider.
type MemoryGateway struct {
	broadcaster
	mu     sync.Mutex
	users  map[string]*memoryUser // by email
	tokens map[string]string      // id token -> uid
	// Resets records the addresses password reset emails were sent to.
	Resets []string
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		users:  make(map[string]*memoryUser),
		tokens: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (g *MemoryGateway) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	g.mu.Lock()
	u, ok := g.users[normalizeEmail(email)]
	if !ok || u.password != password {
		g.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	token := "tok-" + uuid.NewString()
	g.tokens[token] = u.uid
	creds := &Credentials{UID: u.uid, Email: u.email, IDToken: token}
	g.mu.Unlock()

	g.publish(ctx, AuthEvent{UID: u.uid, SignedIn: true})
	return creds, nil
}

func (g *MemoryGateway) SignOut(ctx context.Context, uid string) error {
	return g.signOut(ctx, uid, func(context.Context, string) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		for tok, owner := range g.tokens {
			if owner == uid {
				delete(g.tokens, tok)
			}
		}
		return nil
	})
}

func (g *MemoryGateway) VerifyIDToken(_ context.Context, idToken string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	uid, ok := g.tokens[idToken]
	if !ok {
		return "", ErrInvalidToken
	}
	return uid, nil
}

func (g *MemoryGateway) CreateUser(_ context.Context, email, password string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := normalizeEmail(email)
	if _, exists := g.users[key]; exists {
		return "", ErrEmailExists
	}
	u := &memoryUser{uid: uuid.NewString(), email: key, password: password}
	g.users[key] = u
	return u.uid, nil
}

func (g *MemoryGateway) DeleteUser(_ context.Context, uid string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for email, u := range g.users {
		if u.uid == uid {
			delete(g.users, email)
		}
	}
	return nil
}

func (g *MemoryGateway) SendPasswordReset(_ context.Context, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := normalizeEmail(email)
	if _, ok := g.users[key]; !ok {
		return ErrUserNotFound
	}
	g.Resets = append(g.Resets, key)
	return nil
}

// UIDFor returns the uid registered for an email, for tests and seeding.
func (g *MemoryGateway) UIDFor(email string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[normalizeEmail(email)]
	if !ok {
		return "", false
	}
	return u.uid, true
}
