package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
)

// FirestoreClient is shared by the firestore-backed repositories.
var FirestoreClient *firestore.Client

// InitFirestore opens the Firestore client of the Firebase project.
func InitFirestore(ctx context.Context, app *firebase.App) error {
	client, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open Firestore: %w", err)
	}
	FirestoreClient = client
	return nil
}
