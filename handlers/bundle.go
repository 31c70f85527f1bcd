package handlers

import (
	"context"

	"nahio/models"
	"nahio/services/account"
	"nahio/services/appointment"
	"nahio/services/invitation"
	"nahio/services/notification"
	"nahio/services/session"
)

// Sessions is the part of the session context the handlers drive.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.LoginResult, error)
	Logout(ctx context.Context, uid string) error
	Authenticate(ctx context.Context, idToken string) (*session.State, error)
	Refresh(ctx context.Context, uid string) (*session.State, error)
}

// AddressLookup resolves postal codes.
type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (*models.Address, error)
}

// HandlerBundle groups the services behind the HTTP endpoints.
type HandlerBundle struct {
	Appointments *appointment.Service
	Sessions     Sessions
	Accounts     *account.Service
	Invitations  *invitation.Service
	Address      AddressLookup
	Inbox        notification.InboxStore
}
