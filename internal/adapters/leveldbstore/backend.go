// Package leveldbstore provides a durable kvstore backend on goleveldb.
package leveldbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/example/lifebank/internal/adapters/kvstore"
)

// Backend stores composite keys in a LevelDB database. Each commit is one
// leveldb.Batch, so a crash never leaves half a transaction on disk.
type Backend struct {
	db *leveldb.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &Backend{db: db}, nil
}

// OpenStore opens the database at path and wraps it in a request store.
func OpenStore(path string) (*kvstore.Store, *Backend, error) {
	b, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return kvstore.New(b), b, nil
}

// Close releases the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Get(_ context.Context, key kvstore.Key) ([]byte, error) {
	v, err := b.db.Get([]byte(key.String()), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key.Type, err)
	}
	return v, nil
}

func (b *Backend) Scan(_ context.Context, prefix kvstore.Key) ([]kvstore.Entry, error) {
	iter := b.db.NewIterator(util.BytesPrefix([]byte(prefix.String())), nil)
	defer iter.Release()

	var out []kvstore.Entry
	for iter.Next() {
		k, err := kvstore.ParseKey(string(iter.Key()))
		if err != nil {
			return nil, err
		}
		out = append(out, kvstore.Entry{Key: k, Value: append([]byte(nil), iter.Value()...)})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix.Type, err)
	}
	return out, nil
}

func (b *Backend) Commit(_ context.Context, writes []kvstore.Write) error {
	batch := new(leveldb.Batch)
	for _, w := range writes {
		if w.Delete {
			batch.Delete([]byte(w.Key.String()))
			continue
		}
		batch.Put([]byte(w.Key.String()), w.Value)
	}
	if err := b.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write batch of %d: %w", len(writes), err)
	}
	return nil
}

// Ensure Backend implements the interface
var _ kvstore.Backend = (*Backend)(nil)
