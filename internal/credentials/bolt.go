package credentials

import (
	"fmt"

	"github.com/boltdb/bolt"
)

var credentialsBucket = []byte("credentials")

// BoltStore keeps credential blobs in a local bolt database file
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credentials bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns the blob for userID, or "" when none is stored
func (s *BoltStore) Get(userID string) (string, error) {
	var blob string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(credentialsBucket).Get([]byte(userID)); v != nil {
			blob = string(v)
		}
		return nil
	})
	return blob, err
}

// Save overwrites the blob for userID
func (s *BoltStore) Save(userID, blob string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Put([]byte(userID), []byte(blob))
	})
}

// Clear deletes the blob for userID. Succeeds when none existed.
func (s *BoltStore) Clear(userID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Delete([]byte(userID))
	})
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
