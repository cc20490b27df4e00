package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

var recordColumns = []string{"id", "user_id", "counterparty_id", "rtc_token", "rtm_token", "consultation_type", "channel", "created_at"}

func TestCredentialRepository_Create(t *testing.T) {
	t.Run("inserts and assigns id and created_at", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewCredentialRepository(mock)
		createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		mock.ExpectQuery("INSERT INTO credential_records").
			WithArgs(pgxmock.AnyArg(), "u1", "a1", "rtc-token", "rtm-token", "chat", "c1").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

		record := &domain.CredentialRecord{
			UserID:           "u1",
			CounterpartyID:   "a1",
			RTCToken:         "rtc-token",
			RTMToken:         "rtm-token",
			ConsultationType: "chat",
			Channel:          "c1",
		}
		require.NoError(t, repo.Create(context.Background(), record))
		require.NotEmpty(t, record.ID)
		require.Equal(t, createdAt, record.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewCredentialRepository(mock)
		mock.ExpectQuery("INSERT INTO credential_records").
			WillReturnError(errors.New("connection reset"))

		err = repo.Create(context.Background(), &domain.CredentialRecord{UserID: "u1", CounterpartyID: "a1"})
		require.ErrorContains(t, err, "connection reset")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCredentialRepository_FindLatest(t *testing.T) {
	t.Run("returns newest record", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewCredentialRepository(mock)
		createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		mock.ExpectQuery("ORDER BY created_at DESC, seq DESC").
			WithArgs("u1", "a1").
			WillReturnRows(pgxmock.NewRows(recordColumns).
				AddRow("rec-2", "u1", "a1", "rtc-2", "rtm-2", "video", "c1", createdAt))

		record, found, err := repo.FindLatest(context.Background(), "u1", "a1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "rec-2", record.ID)
		require.Equal(t, "rtc-2", record.RTCToken)
		require.Equal(t, "video", record.ConsultationType)
		require.Equal(t, createdAt, record.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports not found without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewCredentialRepository(mock)
		mock.ExpectQuery("FROM credential_records").
			WithArgs("u1", "nobody").
			WillReturnRows(pgxmock.NewRows(recordColumns))

		_, found, err := repo.FindLatest(context.Background(), "u1", "nobody")
		require.NoError(t, err)
		require.False(t, found)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates query errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewCredentialRepository(mock)
		mock.ExpectQuery("FROM credential_records").
			WillReturnError(errors.New("timeout"))

		_, found, err := repo.FindLatest(context.Background(), "u1", "a1")
		require.Error(t, err)
		require.False(t, found)
	})
}
