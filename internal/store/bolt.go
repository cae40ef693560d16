package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketCampuses = []byte("campuses")

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCampuses)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) AddCampus(c *Campus) error {
	key := NormalizeName(c.Name)
	if key == "" {
		return fmt.Errorf("campus name is empty")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCampuses)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCampuses)
		}
		if b.Get([]byte(key)) != nil {
			return fmt.Errorf("campus %q: %w", key, ErrExists)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		c.Name = key
		c.Order = seq
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) GetCampus(name string) (*Campus, error) {
	key := NormalizeName(name)
	var c Campus
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCampuses)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCampuses)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("campus %q: %w", key, ErrNotFound)
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *BoltStore) DeleteCampus(name string) error {
	key := NormalizeName(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCampuses)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCampuses)
		}
		if b.Get([]byte(key)) == nil {
			return fmt.Errorf("campus %q: %w", key, ErrNotFound)
		}
		return b.Delete([]byte(key))
	})
}

// ListCampuses returns campuses in the order they were added.
func (s *BoltStore) ListCampuses() ([]*Campus, error) {
	var campuses []*Campus
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCampuses)
		if b == nil {
			return nil // no bucket = no campuses
		}
		campuses = make([]*Campus, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var c Campus
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("decode campus %q: %w", k, err)
			}
			campuses = append(campuses, &c)
			return nil
		})
	})
	sort.Slice(campuses, func(i, j int) bool { return campuses[i].Order < campuses[j].Order })
	return campuses, err
}

func (s *BoltStore) UpdateCampus(name string, fn func(c *Campus) error) error {
	key := NormalizeName(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCampuses)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCampuses)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("campus %q: %w", key, ErrNotFound)
		}
		var c Campus
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		order := c.Order
		if err := fn(&c); err != nil {
			return err
		}
		// Name and order are the identity of the entry.
		c.Name, c.Order = key, order
		out, err := json.Marshal(&c)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), out)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
