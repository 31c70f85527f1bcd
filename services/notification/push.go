package notification

import (
	"context"
	"errors"
	"fmt"

	"nahio/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MessageSender is satisfied by *messaging.Client.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// UserLookup resolves a user's base record for its FCM token.
type UserLookup interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// PushNotifier sends FCM pushes to event recipients that registered a token.
type PushNotifier struct {
	Sender MessageSender
	Users  UserLookup
	Logger *zap.Logger
}

func (p *PushNotifier) Notify(ctx context.Context, event models.AppointmentEvent) error {
	msg := Render(event)
	var errs []error
	for _, uid := range event.Recipients() {
		u, err := p.Users.GetUser(ctx, uid)
		if err != nil {
			errs = append(errs, fmt.Errorf("push: could not find user %s: %w", uid, err))
			continue
		}
		if u.FCMToken == "" {
			p.Logger.Debug("push skipped, no FCM token", zap.String("userId", uid))
			continue
		}

		_, err = p.Sender.Send(ctx, &messaging.Message{
			Token: u.FCMToken,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: eventData(event),
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					ChannelID: "agendamentos",
					Sound:     "default",
				},
			},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{
					"apns-priority":  "10",
					"apns-push-type": "alert",
				},
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("push: failed to send FCM message to %s: %w", uid, err))
		}
	}
	return errors.Join(errs...)
}
