// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"lexredact/internal/detector"
)

const bucketName = "learned_entities"

// Bolt is a Store backed by an embedded bbolt database. Values are JSON
// encoded entries under their Key.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens or creates the database at path and ensures the bucket exists
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open learned store %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create learned store bucket: %w", err)
	}
	return &Bolt{db: db, now: time.Now}, nil
}

func (b *Bolt) FindMatches(ctx context.Context, text string) ([]Entry, error) {
	entries, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	return matching(entries, text), nil
}

func (b *Bolt) Record(ctx context.Context, c detector.Candidate, confirmed bool) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validate(c); err != nil {
		return Entry{}, err
	}
	key := []byte(Key(c.Type, c.Text))

	var out Entry
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %q not found", bucketName)
		}
		var prev *Entry
		if v := bucket.Get(key); v != nil {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode learned entity: %w", err)
			}
			prev = &e
		}
		out = update(prev, c, confirmed, b.now().UTC())
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("record learned entity: %w", err)
	}
	return out, nil
}

func (b *Bolt) Get(ctx context.Context, t detector.EntityType, text string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	var out Entry
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(Key(t, text)))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &out)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("read learned entity: %w", err)
	}
	if !found {
		return Entry{}, ErrNotFound
	}
	return out, nil
}

func (b *Bolt) Remove(ctx context.Context, t detector.EntityType, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(Key(t, text))
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get(key) == nil {
			return ErrNotFound
		}
		return bucket.Delete(key)
	})
}

func (b *Bolt) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode learned entity: %w", err)
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortEntries(out)
	return out, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
