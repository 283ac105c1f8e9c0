package outbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store wraps BoltDB to persist undelivered notifications while the dispatch
// endpoint is unavailable.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "outbox"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Enqueue stores an envelope under a timestamp-ordered key.
func (s *Store) Enqueue(env Envelope) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	env.normalize()
	key := buildKey(env)
	env.bucketKey = []byte(key)

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(env.bucketKey, payload)
	})
}

// GetBatch returns up to limit envelopes without removing them.
func (s *Store) GetBatch(limit int) ([]Envelope, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var envelopes []Envelope
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(envelopes) < limit; k, v = c.Next() {
			var env Envelope
			if err := json.Unmarshal(v, &env); err != nil {
				continue
			}
			env.bucketKey = append([]byte(nil), k...)
			envelopes = append(envelopes, env)
		}
		return nil
	})
	return envelopes, err
}

// Remove deletes the provided envelope from the outbox.
func (s *Store) Remove(env Envelope) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(env.bucketKey) == 0 {
		return s.deleteByID(env.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(env.bucketKey)
	})
}

// Requeue re-inserts an envelope after bumping its timestamp.
func (s *Store) Requeue(env Envelope) error {
	env.bucketKey = nil
	env.Timestamp = time.Now()
	return s.Enqueue(env)
}

// Size returns the number of queued envelopes.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) deleteByID(id string) error {
	if id == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var env Envelope
			if err := json.Unmarshal(v, &env); err != nil {
				continue
			}
			if env.ID == id {
				return c.Delete()
			}
		}
		return nil
	})
}

func buildKey(env Envelope) string {
	return fmt.Sprintf("%020d_%s", env.Timestamp.UnixNano(), env.ID)
}
