package buffer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists pending advisory writes in BoltDB.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "buffer"
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

// Enqueue stores an item, replacing any pending item with the same entity and key.
func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()

	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(item.bucketKey(), payload)
	})
}

// GetBatch returns up to limit items, oldest first, without removing them.
func (s *Store) GetBatch(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return nil
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortByTimestamp(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Remove deletes the item unless a newer write for the same key replaced it.
func (s *Store) Remove(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		current := b.Get(item.bucketKey())
		if current == nil {
			return nil
		}
		var stored Item
		if err := json.Unmarshal(current, &stored); err == nil && stored.ID != item.ID {
			return nil
		}
		return b.Delete(item.bucketKey())
	})
}

// Requeue stores the item again with its retry counter bumped. A newer write
// for the same key wins over the requeued one.
func (s *Store) Requeue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.Retries++
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if current := b.Get(item.bucketKey()); current != nil {
			var stored Item
			if err := json.Unmarshal(current, &stored); err == nil && stored.ID != item.ID {
				return nil
			}
		}
		return b.Put(item.bucketKey(), payload)
	})
}

// Size returns the number of buffered items.
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

// Cleanup removes items older than the provided timestamp.
func (s *Store) Cleanup(olderThan time.Time) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.Timestamp.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}

func sortByTimestamp(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
