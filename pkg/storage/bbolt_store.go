package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var configBucket = []byte("config")

// BoltStore is a single-file embedded key-value store backing Store,
// replacing the original design's redb table with bbolt's bucket model
// (single bucket "config", mirroring the original's single table of the
// same name).
type BoltStore struct {
	db *bbolt.DB
}

// Open creates or opens a bbolt database file at path, ensuring the
// config bucket exists.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(configBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create config bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(configBucket).Put([]byte(key), value)
	})
}

func (s *BoltStore) Load(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(configBucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
