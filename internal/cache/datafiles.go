package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix is the namespace used for all datafile keys in Redis.
// Example: "datafile:sdk-key-123"
const keyPrefix = "datafile"

// ErrDatafileNotFound is returned when no payload is stored for an SDK key.
var ErrDatafileNotFound = errors.New("datafile not found in store")

// DatafileRecord is one stored datafile payload plus its fetch metadata.
type DatafileRecord struct {
	Raw       []byte
	Revision  string
	ETag      string
	FetchedAt time.Time
}

// DatafileStore persists raw datafile payloads keyed by SDK key.
// Implementations must be safe for concurrent use.
type DatafileStore interface {
	// Save overwrites the stored payload for the SDK key.
	Save(ctx context.Context, sdkKey string, rec DatafileRecord) error

	// Load returns the stored payload, or ErrDatafileNotFound.
	Load(ctx context.Context, sdkKey string) (DatafileRecord, error)

	// HealthCheck pings the backing store.
	HealthCheck(ctx context.Context) error

	// Close terminates the connection.
	Close() error
}

// Compile-time check that RedisStore satisfies DatafileStore.
var _ DatafileStore = (*RedisStore)(nil)

// RedisStore implements DatafileStore on go-redis, storing each record as a
// hash so metadata fields stay individually inspectable (redis-cli HGETALL).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisStore{client: client}
}

func datafileKey(sdkKey string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, sdkKey)
}

// Save stores the record as a Redis hash. HSET with multiple fields is
// atomic, so readers never observe a payload with another record's metadata.
func (s *RedisStore) Save(ctx context.Context, sdkKey string, rec DatafileRecord) error {
	fields := map[string]any{
		"raw":        rec.Raw,
		"revision":   rec.Revision,
		"etag":       rec.ETag,
		"fetched_at": rec.FetchedAt.UnixMilli(),
	}

	if err := s.client.HSet(ctx, datafileKey(sdkKey), fields).Err(); err != nil {
		return fmt.Errorf("failed to store datafile for %q: %w", sdkKey, err)
	}
	return nil
}

// Load retrieves the stored record for the SDK key.
func (s *RedisStore) Load(ctx context.Context, sdkKey string) (DatafileRecord, error) {
	fields, err := s.client.HGetAll(ctx, datafileKey(sdkKey)).Result()
	if err != nil {
		return DatafileRecord{}, fmt.Errorf("failed to load datafile for %q: %w", sdkKey, err)
	}
	// HGETALL returns an empty map, not a nil error, for a missing key.
	if len(fields) == 0 {
		return DatafileRecord{}, ErrDatafileNotFound
	}

	rec := DatafileRecord{
		Raw:      []byte(fields["raw"]),
		Revision: fields["revision"],
		ETag:     fields["etag"],
	}
	if ms, err := strconv.ParseInt(fields["fetched_at"], 10, 64); err == nil {
		rec.FetchedAt = time.UnixMilli(ms)
	}
	return rec, nil
}

// HealthCheck verifies the connection to the Redis server.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
