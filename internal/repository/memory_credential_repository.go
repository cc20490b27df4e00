package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

type pairKey struct {
	userID         string
	counterpartyID string
}

type memoryCredentialRepository struct {
	mu      sync.RWMutex
	now     func() time.Time
	last    time.Time
	records map[pairKey][]domain.CredentialRecord
}

// NewMemoryCredentialRepository returns a process-local repository used when no
// database is configured. CreatedAt has microsecond precision, like Postgres
// timestamptz, and is strictly increasing in insertion order.
func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{
		now:     time.Now,
		records: make(map[pairKey][]domain.CredentialRecord),
	}
}

func (r *memoryCredentialRepository) Create(ctx context.Context, record *domain.CredentialRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := r.now().UTC().Truncate(time.Microsecond)
	if !createdAt.After(r.last) {
		createdAt = r.last.Add(time.Microsecond)
	}
	r.last = createdAt
	record.CreatedAt = createdAt

	key := pairKey{userID: record.UserID, counterpartyID: record.CounterpartyID}
	r.records[key] = append(r.records[key], *record)
	return nil
}

func (r *memoryCredentialRepository) FindLatest(ctx context.Context, userID, counterpartyID string) (domain.CredentialRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CredentialRecord{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.records[pairKey{userID: userID, counterpartyID: counterpartyID}]
	if len(records) == 0 {
		return domain.CredentialRecord{}, false, nil
	}
	latest := records[0]
	for _, rec := range records[1:] {
		if rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}
	return latest, true, nil
}
