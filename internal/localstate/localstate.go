// Package localstate keeps the origin-private persisted state the browser
// version held in localStorage: the admin-session flag and the cached Drive
// access token with its expiry. It survives restarts; logout and token
// invalidation remove their entries.
package localstate

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketState = []byte("state")

const (
	keyAdminSession = "adminSession"
	keyDriveToken   = "gdrive_token"
	keyTokenExpiry  = "gdrive_token_expiry"
)

type Store struct {
	db *bolt.DB
}

// Open creates or opens the state file under workdir.
func Open(workdir string) (*Store, error) {
	path := filepath.Join(workdir, "localstate.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open local state")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init local state bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put([]byte(key), value)
	})
}

func (s *Store) get(key string) []byte {
	var out []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketState).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out
}

func (s *Store) delete(keys ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetAdminActive records or clears the admin-session flag.
func (s *Store) SetAdminActive(active bool) error {
	if !active {
		return s.delete(keyAdminSession)
	}
	return s.put(keyAdminSession, []byte("true"))
}

// AdminActive reports whether an admin session is currently active.
func (s *Store) AdminActive() bool {
	return string(s.get(keyAdminSession)) == "true"
}

// SaveToken stores an access token with its expiry timestamp.
func (s *Store) SaveToken(token string, expiry time.Time) error {
	if err := s.put(keyDriveToken, []byte(token)); err != nil {
		return err
	}
	return s.put(keyTokenExpiry, []byte(strconv.FormatInt(expiry.UnixMilli(), 10)))
}

// Token returns the cached token and expiry; ok is false when none is held.
func (s *Store) Token() (token string, expiry time.Time, ok bool) {
	tok := s.get(keyDriveToken)
	exp := s.get(keyTokenExpiry)
	if len(tok) == 0 || len(exp) == 0 {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(exp), 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return string(tok), time.UnixMilli(ms), true
}

// ClearToken removes the cached token and its expiry.
func (s *Store) ClearToken() error {
	return s.delete(keyDriveToken, keyTokenExpiry)
}
