package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rtc-token-service/internal/events"
	"github.com/spec-kit/rtc-token-service/internal/service"
)

// CredentialWorker owns the async dispatcher that records issued credential pairs.
type CredentialWorker struct {
	dispatcher *events.AsyncDispatcher
	logger     *zap.Logger
}

// StartCredentialWorker registers the recorder's handlers on the dispatcher.
func StartCredentialWorker(dispatcher *events.AsyncDispatcher, recorder *service.CredentialRecorder, logger *zap.Logger) *CredentialWorker {
	recorder.RegisterHandlers()
	return &CredentialWorker{dispatcher: dispatcher, logger: logger}
}

// Stop drains pending writes, giving up after timeout.
func (w *CredentialWorker) Stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := w.dispatcher.Close(ctx); err != nil {
		w.logger.Warn("credential worker stopped with pending writes", zap.Error(err))
		return
	}
	w.logger.Info("credential worker stopped")
}
