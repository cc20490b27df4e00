package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

// CredentialRepository stores issued credential pairs. Records are append-only.
type CredentialRepository interface {
	// Create persists the record, assigning ID (when empty) and CreatedAt.
	Create(ctx context.Context, record *domain.CredentialRecord) error
	// FindLatest returns the most recently created record for the pair.
	// found is false, with a nil error, when the pair has no records.
	FindLatest(ctx context.Context, userID, counterpartyID string) (record domain.CredentialRecord, found bool, err error)
}

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type credentialRepository struct {
	pool DBTX
}

// NewCredentialRepository builds a Postgres backed repository.
func NewCredentialRepository(pool DBTX) CredentialRepository {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Create(ctx context.Context, record *domain.CredentialRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO credential_records (id, user_id, counterparty_id, rtc_token, rtm_token, consultation_type, channel)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		record.ID,
		record.UserID,
		record.CounterpartyID,
		record.RTCToken,
		record.RTMToken,
		record.ConsultationType,
		record.Channel,
	).Scan(&record.CreatedAt)
}

func (r *credentialRepository) FindLatest(ctx context.Context, userID, counterpartyID string) (domain.CredentialRecord, bool, error) {
	const query = `
        SELECT id, user_id, counterparty_id, rtc_token, rtm_token, consultation_type, channel, created_at
        FROM credential_records
        WHERE user_id=$1 AND counterparty_id=$2
        ORDER BY created_at DESC, seq DESC
        LIMIT 1`
	var record domain.CredentialRecord
	err := r.pool.QueryRow(ctx, query, userID, counterpartyID).Scan(
		&record.ID,
		&record.UserID,
		&record.CounterpartyID,
		&record.RTCToken,
		&record.RTMToken,
		&record.ConsultationType,
		&record.Channel,
		&record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CredentialRecord{}, false, nil
	}
	if err != nil {
		return domain.CredentialRecord{}, false, err
	}
	return record, true, nil
}
