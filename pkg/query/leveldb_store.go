package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDBStore persists query records in an embedded LevelDB database,
// for single-process deployments without Redis.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (or creates) a store at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// NewMemoryLevelDBStore opens a store backed by memory only.
func NewMemoryLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

// Load retrieves a record by key.
// Returns ErrRecordMiss if the key doesn't exist or the record is expired.
func (s *LevelDBStore) Load(ctx context.Context, key string) (*Record, error) {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrRecordMiss
		}
		StoreErrors.WithLabelValues("leveldb", "load").Inc()
		return nil, fmt.Errorf("leveldb get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		StoreErrors.WithLabelValues("leveldb", "load").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if rec.IsExpired() {
		_ = s.Delete(ctx, key)
		return nil, ErrRecordMiss
	}

	StoreHits.WithLabelValues("leveldb").Inc()
	return &rec, nil
}

// Save stores a record. Expired records are not written.
func (s *LevelDBStore) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.TTL() <= 0 {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		StoreErrors.WithLabelValues("leveldb", "save").Inc()
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := s.db.Put([]byte(rec.Key), data, nil); err != nil {
		StoreErrors.WithLabelValues("leveldb", "save").Inc()
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

// Delete removes a record.
func (s *LevelDBStore) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		StoreErrors.WithLabelValues("leveldb", "delete").Inc()
		return fmt.Errorf("leveldb delete: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
