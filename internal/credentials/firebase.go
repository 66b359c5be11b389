package credentials

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"drivebot/internal/config"
)

// FirebaseStore keeps credential blobs in a Firebase Realtime Database,
// for deployments where the bot has no persistent local disk.
type FirebaseStore struct {
	ctx context.Context
	ref *db.Ref
}

// credentialRecord is the shape stored under credentials/<userID>
type credentialRecord struct {
	UserID string `json:"userId"`
	Blob   string `json:"blob"`
}

// NewFirebaseStore connects to the configured Realtime Database
func NewFirebaseStore(ctx context.Context, cfg config.CredentialsConfig) (*FirebaseStore, error) {
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)

	firebaseConfig := &firebase.Config{
		DatabaseURL: cfg.FirebaseDatabaseURL,
	}

	app, err := firebase.NewApp(ctx, firebaseConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &FirebaseStore{
		ctx: ctx,
		ref: client.NewRef("credentials"),
	}, nil
}

// Get returns the blob for userID, or "" when none is stored
func (s *FirebaseStore) Get(userID string) (string, error) {
	var record credentialRecord
	if err := s.ref.Child(userID).Get(s.ctx, &record); err != nil {
		return "", fmt.Errorf("error fetching credential for %s: %w", userID, err)
	}
	return record.Blob, nil
}

// Save overwrites the blob for userID
func (s *FirebaseStore) Save(userID, blob string) error {
	record := map[string]any{
		"userId": userID,
		"blob":   blob,
	}
	if err := s.ref.Child(userID).Set(s.ctx, record); err != nil {
		return fmt.Errorf("error saving credential for %s: %w", userID, err)
	}
	return nil
}

// Clear deletes the blob for userID. Succeeds when none existed.
func (s *FirebaseStore) Clear(userID string) error {
	if err := s.ref.Child(userID).Delete(s.ctx); err != nil {
		return fmt.Errorf("error deleting credential for %s: %w", userID, err)
	}
	return nil
}

// Close is a no-op; the Realtime Database client needs no teardown
func (s *FirebaseStore) Close() error {
	return nil
}

// OpenStore picks the configured backend
func OpenStore(ctx context.Context, cfg config.CredentialsConfig) (Store, error) {
	switch cfg.Backend {
	case "firebase":
		return NewFirebaseStore(ctx, cfg)
	default:
		return NewBoltStore(cfg.BoltPath)
	}
}
