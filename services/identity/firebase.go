package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseGateway uses the Admin SDK for user management and token checks,
// and the Identity Toolkit REST API for password sign-in and reset emails.
type FirebaseGateway struct {
	broadcaster
	auth    *auth.Client
	toolkit *identitytoolkit.Service
}

func NewFirebaseGateway(ctx context.Context, app *firebase.App, webAPIKey string) (*FirebaseGateway, error) {
	if webAPIKey == "" {
		return nil, errors.New("identity: FIREBASE_WEB_API_KEY is required for password sign-in")
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to init auth client: %w", err)
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(webAPIKey))
	if err != nil {
		return nil, fmt.Errorf("identity: failed to init identity toolkit: %w", err)
	}
	return &FirebaseGateway{auth: authClient, toolkit: toolkit}, nil
}

func isClientError(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest
}

func (g *FirebaseGateway) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	resp, err := g.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		if isClientError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity: sign-in failed: %w", err)
	}

	creds := &Credentials{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}
	g.publish(ctx, AuthEvent{UID: creds.UID, SignedIn: true})
	return creds, nil
}

func (g *FirebaseGateway) SignOut(ctx context.Context, uid string) error {
	return g.signOut(ctx, uid, func(ctx context.Context, uid string) error {
		if err := g.auth.RevokeRefreshTokens(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
			return fmt.Errorf("identity: failed to revoke tokens: %w", err)
		}
		return nil
	})
}

func (g *FirebaseGateway) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := g.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return token.UID, nil
}

func (g *FirebaseGateway) CreateUser(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	u, err := g.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("identity: failed to create user: %w", err)
	}
	return u.UID, nil
}

func (g *FirebaseGateway) DeleteUser(ctx context.Context, uid string) error {
	if err := g.auth.DeleteUser(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
		return fmt.Errorf("identity: failed to delete user: %w", err)
	}
	return nil
}

func (g *FirebaseGateway) SendPasswordReset(ctx context.Context, email string) error {
	_, err := g.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		Email:       email,
		RequestType: "PASSWORD_RESET",
	}).Context(ctx).Do()
	if err != nil {
		if isClientError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("identity: failed to send password reset: %w", err)
	}
	return nil
}
