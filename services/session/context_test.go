package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profileRepo "nahio/database/repository/profile"
	"nahio/models"
	"nahio/services/identity"
)

type fixture struct {
	gw       *identity.MemoryGateway
	profiles *profileRepo.MemoryProfileRepo
	store    *MemoryStore
	sessions *Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gw:       identity.NewMemoryGateway(),
		profiles: profileRepo.NewMemoryProfileRepo(),
		store:    NewMemoryStore(),
	}
	f.sessions = New(f.gw, f.profiles, f.store, time.Hour, nil)
	require.NoError(t, f.sessions.Init(context.Background()))
	t.Cleanup(f.sessions.Dispose)
	return f
}

func (f *fixture) scout(t *testing.T, email, password, name string) string {
	t.Helper()
	ctx := context.Background()
	uid, err := f.gw.CreateUser(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, f.profiles.CreateUser(ctx, &models.User{ID: uid, Email: email, UserType: models.UserTypeScout, IsActive: true}))
	require.NoError(t, f.profiles.SaveScout(ctx, &models.ScoutProfile{ID: uid, Name: name}))
	return uid
}

func TestLoginBuildsAuthenticatedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uid := f.scout(t, "olheiro@nahio.com", "secret1", "Carlos")

	res, err := f.sessions.Login(ctx, "olheiro@nahio.com", "secret1")
	require.NoError(t, err)
	assert.True(t, res.State.Authenticated)
	assert.False(t, res.State.Loading)
	assert.Equal(t, "Carlos", res.State.Profile.DisplayName())
	assert.Equal(t, models.Actor{UserID: uid, UserType: models.UserTypeScout}, res.State.Actor())

	cur, err := f.sessions.Current(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, uid, cur.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.scout(t, "olheiro@nahio.com", "secret1", "Carlos")

	_, err := f.sessions.Login(context.Background(), "olheiro@nahio.com", "nope")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestProfileFailureSignsOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uid := f.scout(t, "olheiro@nahio.com", "secret1", "Carlos")
	f.profiles.FailGets = errors.New("firestore unavailable")

	_, err := f.sessions.Login(ctx, "olheiro@nahio.com", "secret1")
	assert.ErrorIs(t, err, ErrProfileUnavailable)

	st, err := f.store.Get(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, st, "no state survives a failed profile load")

	_, err = f.sessions.Current(ctx, uid)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMissingProfileSignsOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uid, err := f.gw.CreateUser(ctx, "orphan@nahio.com", "secret1")
	require.NoError(t, err)

	creds, err := f.gw.SignIn(ctx, "orphan@nahio.com", "secret1")
	require.NoError(t, err)

	_, err = f.gw.VerifyIDToken(ctx, creds.IDToken)
	assert.ErrorIs(t, err, identity.ErrInvalidToken, "forced sign-out revokes the token")
	_, err = f.sessions.Current(ctx, uid)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutClearsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uid := f.scout(t, "olheiro@nahio.com", "secret1", "Carlos")
	res, err := f.sessions.Login(ctx, "olheiro@nahio.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, uid))
	_, err = f.sessions.Current(ctx, uid)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = f.sessions.Authenticate(ctx, res.Credentials.IDToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthenticateRebuildsMissingState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uid := f.scout(t, "olheiro@nahio.com", "secret1", "Carlos")
	res, err := f.sessions.Login(ctx, "olheiro@nahio.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, uid))
	st, err := f.sessions.Authenticate(ctx, res.Credentials.IDToken)
	require.NoError(t, err)
	assert.True(t, st.Authenticated)

	_, err = f.sessions.Authenticate(ctx, "forged")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	gw := identity.NewMemoryGateway()
	c := New(gw, profileRepo.NewMemoryProfileRepo(), NewMemoryStore(), time.Hour, nil)

	_, err := c.Login(ctx, "a@b.com", "x")
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, c.Init(ctx))
	require.NoError(t, c.Init(ctx))
	c.Dispose()
	c.Dispose()

	assert.ErrorIs(t, c.Init(ctx), ErrDisposed)
	_, err = c.Current(ctx, "u1")
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "u1", State{Authenticated: true}, time.Minute))
	st, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, st)

	now = now.Add(2 * time.Minute)
	st, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, st)
}
