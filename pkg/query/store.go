package query

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrRecordMiss indicates the requested key was not found in the store
	ErrRecordMiss = errors.New("record miss")

	// ErrInvalidRecord indicates the stored record is invalid or corrupted
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is a persisted query result.
type Record struct {
	// Key is the key string the record belongs to
	Key string `json:"key"`

	// Data is the JSON-encoded value
	Data json.RawMessage `json:"data"`

	// UpdatedAt is when the value was fetched
	UpdatedAt time.Time `json:"updated_at"`

	// ExpiresAt is when the record must no longer be used for hydration
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the record has expired.
func (r *Record) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (r *Record) TTL() time.Duration {
	ttl := time.Until(r.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Store persists successful query results so a restarted process can serve
// them (marked stale) while refetching.
type Store interface {
	// Load returns ErrRecordMiss when nothing (unexpired) is stored.
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, key string) error
}

// DefaultRecordTTL is how long persisted records are kept.
const DefaultRecordTTL = 24 * time.Hour

func newRecord(key Key, data any, updatedAt time.Time, ttl time.Duration) (*Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultRecordTTL
	}
	return &Record{
		Key:       key.String(),
		Data:      raw,
		UpdatedAt: updatedAt,
		ExpiresAt: updatedAt.Add(ttl),
	}, nil
}
