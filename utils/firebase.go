// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"nahio/config"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

var FirebaseApp *firebase.App

// FirebaseInit initializes the Firebase App shared by auth, firestore and messaging.
func FirebaseInit(ctx context.Context) (*firebase.App, error) {
	if FirebaseApp != nil {
		return FirebaseApp, nil
	}
	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentialsFile; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	var fbConfig *firebase.Config
	if id := config.AppConfig.FirebaseProjectID; id != "" {
		fbConfig = &firebase.Config{ProjectID: id}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	FirebaseApp = app
	return app, nil
}
