package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

const (
	latestKeyPrefix = "credential:latest:"

	fieldCreatedAt = "created_at"
	fieldRecord    = "record"
)

// storeIfNewer replaces the cached record only when the hash is empty or holds an
// older created_at (unix microseconds). Returns 1 when the entry was written.
var storeIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'created_at')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'created_at', ARGV[1], 'record', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

type cachedCredentialRepository struct {
	next   CredentialRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCredentialRepository puts a Redis read-through cache in front of next.
// Writes go through to the cache, and an entry is never replaced by an older
// record, so a slow reader cannot resurrect a superseded credential. Cache
// failures fall back to next.
func NewCachedCredentialRepository(next CredentialRepository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) CredentialRepository {
	return &cachedCredentialRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func latestKey(userID, counterpartyID string) string {
	return latestKeyPrefix + userID + ":" + counterpartyID
}

func (r *cachedCredentialRepository) Create(ctx context.Context, record *domain.CredentialRecord) error {
	if err := r.next.Create(ctx, record); err != nil {
		return err
	}
	r.store(ctx, *record)
	return nil
}

func (r *cachedCredentialRepository) FindLatest(ctx context.Context, userID, counterpartyID string) (domain.CredentialRecord, bool, error) {
	key := latestKey(userID, counterpartyID)

	raw, err := r.client.HGet(ctx, key, fieldRecord).Bytes()
	switch {
	case err == nil:
		var record domain.CredentialRecord
		if jsonErr := json.Unmarshal(raw, &record); jsonErr == nil {
			return record, true, nil
		}
		r.logger.Warn("discarding malformed cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("credential cache read failed", zap.String("key", key), zap.Error(err))
	}

	record, found, err := r.next.FindLatest(ctx, userID, counterpartyID)
	if err != nil || !found {
		return record, found, err
	}
	r.store(ctx, record)
	return record, true, nil
}

func (r *cachedCredentialRepository) store(ctx context.Context, record domain.CredentialRecord) {
	key := latestKey(record.UserID, record.CounterpartyID)
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}

	args := []any{record.CreatedAt.UnixMicro(), payload, r.ttl.Milliseconds()}
	if err := storeIfNewer.Run(ctx, r.client, []string{key}, args...).Err(); err != nil {
		r.logger.Warn("credential cache write failed",
			zap.String("user_id", record.UserID),
			zap.String("counterparty_id", record.CounterpartyID),
			zap.Error(err))
	}
}
