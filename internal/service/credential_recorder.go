package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rtc-token-service/internal/config"
	"github.com/spec-kit/rtc-token-service/internal/events"
	"github.com/spec-kit/rtc-token-service/internal/observability"
	"github.com/spec-kit/rtc-token-service/internal/repository"
)

// CredentialRecorder persists issued credential pairs published on the dispatcher.
type CredentialRecorder struct {
	dispatcher   events.Dispatcher
	credentials  repository.CredentialRepository
	logger       *zap.Logger
	metrics      *observability.Metrics
	writeTimeout time.Duration
}

// NewCredentialRecorder creates the recorder.
func NewCredentialRecorder(dispatcher events.Dispatcher, credentials repository.CredentialRepository, logger *zap.Logger, metrics *observability.Metrics, cfg config.StoreConfig) *CredentialRecorder {
	return &CredentialRecorder{
		dispatcher:   dispatcher,
		credentials:  credentials,
		logger:       logger,
		metrics:      metrics,
		writeTimeout: cfg.WriteTimeout(),
	}
}

// RegisterHandlers subscribes to events.
func (r *CredentialRecorder) RegisterHandlers() {
	if r.dispatcher == nil {
		return
	}
	r.dispatcher.Subscribe(events.EventCredentialIssued, r.handleCredentialIssued)
}

// handleCredentialIssued writes the record under its own deadline. A timeout is a
// failure like any other; the dispatcher logs the returned error.
func (r *CredentialRecorder) handleCredentialIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CredentialIssuedPayload)
	if !ok {
		r.metrics.RecordPersist("failure")
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	record := payload.Record
	if err := r.credentials.Create(ctx, &record); err != nil {
		r.metrics.RecordPersist("failure")
		return fmt.Errorf("persist credential %s for %s/%s: %w", record.ID, record.UserID, record.CounterpartyID, err)
	}

	r.metrics.RecordPersist("success")
	r.logger.Info("credential recorded",
		zap.String("record_id", record.ID),
		zap.String("user_id", record.UserID),
		zap.String("counterparty_id", record.CounterpartyID),
		zap.String("consultation_type", record.ConsultationType),
		zap.Time("created_at", record.CreatedAt))
	return nil
}
