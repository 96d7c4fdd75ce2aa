package database

import (
	"context"

	"cloud.google.com/go/firestore"
)

// NewFirestore connects with the ambient Google credentials
// (GOOGLE_APPLICATION_CREDENTIALS, or FIRESTORE_EMULATOR_HOST for local runs).
func NewFirestore(ctx context.Context, projectID string) (*firestore.Client, error) {
	return firestore.NewClient(ctx, projectID)
}
