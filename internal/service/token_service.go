package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/rtc-token-service/internal/auth"
	"github.com/spec-kit/rtc-token-service/internal/config"
	"github.com/spec-kit/rtc-token-service/internal/domain"
	"github.com/spec-kit/rtc-token-service/internal/events"
	"github.com/spec-kit/rtc-token-service/internal/observability"
	"github.com/spec-kit/rtc-token-service/internal/repository"
	apperrors "github.com/spec-kit/rtc-token-service/pkg/util/errorutil"
)

// IssueTransportRequest asks for a single RTC token.
type IssueTransportRequest struct {
	Channel string
	Subject string
	Role    domain.Role
	Mode    domain.IdentityMode
	TTL     string
}

// IssueMessagingRequest asks for a single RTM token. Role is accepted but ignored.
type IssueMessagingRequest struct {
	Subject string
	Role    domain.Role
	TTL     string
}

// IssueSessionRequest asks for an RTC and RTM token pair sharing one expiry.
// The pair is recorded when UserID, CounterpartyID and ConsultationType are all set.
type IssueSessionRequest struct {
	Channel          string
	Subject          string
	Role             domain.Role
	TTL              string
	UserID           string
	CounterpartyID   string
	ConsultationType string
}

func (r IssueSessionRequest) persistable() bool {
	return strings.TrimSpace(r.UserID) != "" &&
		strings.TrimSpace(r.CounterpartyID) != "" &&
		strings.TrimSpace(r.ConsultationType) != ""
}

// TokenService issues transport and messaging tokens and looks up recorded pairs.
type TokenService struct {
	rtc         auth.Signer
	rtm         auth.Signer
	validator   *RequestValidator
	expiry      ExpiryCalculator
	credentials repository.CredentialRepository
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	readTimeout time.Duration
	now         func() time.Time
}

// TokenDependencies encapsulates collaborators of the token service.
type TokenDependencies struct {
	RTCSigner   auth.Signer
	RTMSigner   auth.Signer
	Credentials repository.CredentialRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewTokenService builds the service.
func NewTokenService(cfg config.Config, deps TokenDependencies) *TokenService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		rtc:         deps.RTCSigner,
		rtm:         deps.RTMSigner,
		validator:   NewRequestValidator(),
		expiry:      NewExpiryCalculator(cfg.Token.DefaultTTLSeconds, cfg.Token.MaxTTLSeconds),
		credentials: deps.Credentials,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		readTimeout: cfg.Store.ReadTimeout(),
		now:         time.Now,
	}
}

// IssueTransport signs an RTC token for an account name or numeric uid subject.
func (s *TokenService) IssueTransport(_ context.Context, req IssueTransportRequest) (*domain.IssuedCredential, error) {
	if err := s.validator.ValidateTransport(req); err != nil {
		return nil, err
	}
	rtcRole, _, _ := auth.RoleCodes(req.Role)

	expiresAt, err := s.expiry.ExpiresAt(req.TTL, s.now())
	if err != nil {
		return nil, err
	}

	token, err := s.rtc.Sign(auth.SignRequest{
		Channel:   req.Channel,
		Subject:   req.Subject,
		Mode:      req.Mode,
		Role:      rtcRole,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Error("rtc signing failed", zap.String("channel", req.Channel), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrSigningFailure, err)
	}
	s.metrics.RecordIssued("rtc")

	return &domain.IssuedCredential{RTCToken: token, ExpiresAt: expiresAt}, nil
}

// IssueMessaging signs an RTM token. The privilege is always the standard user code.
func (s *TokenService) IssueMessaging(_ context.Context, req IssueMessagingRequest) (*domain.IssuedCredential, error) {
	if err := s.validator.ValidateMessaging(req); err != nil {
		return nil, err
	}

	expiresAt, err := s.expiry.ExpiresAt(req.TTL, s.now())
	if err != nil {
		return nil, err
	}

	token, err := s.rtm.Sign(auth.SignRequest{
		Subject:   req.Subject,
		Role:      auth.RTMRoleUser,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Error("rtm signing failed", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrSigningFailure, err)
	}
	s.metrics.RecordIssued("rtm")

	return &domain.IssuedCredential{RTMToken: token, ExpiresAt: expiresAt}, nil
}

// IssueSession signs an RTC (numeric uid) and RTM token pair with a shared expiry and,
// when the request identifies the consultation, queues the pair for recording. The
// response never waits for the record to be written.
func (s *TokenService) IssueSession(ctx context.Context, req IssueSessionRequest) (*domain.IssuedCredential, error) {
	if strings.TrimSpace(req.Subject) == "" {
		req.Subject = req.CounterpartyID
	}
	if err := s.validator.ValidateSession(req); err != nil {
		return nil, err
	}
	rtcRole, rtmRole, _ := auth.RoleCodes(req.Role)

	expiresAt, err := s.expiry.ExpiresAt(req.TTL, s.now())
	if err != nil {
		return nil, err
	}

	var rtcToken, rtmToken string
	var g errgroup.Group
	g.Go(func() error {
		token, err := s.rtc.Sign(auth.SignRequest{
			Channel:   req.Channel,
			Subject:   req.Subject,
			Mode:      domain.IdentityModeUID,
			Role:      rtcRole,
			ExpiresAt: expiresAt,
		})
		rtcToken = token
		return err
	})
	g.Go(func() error {
		token, err := s.rtm.Sign(auth.SignRequest{
			Subject:   req.Subject,
			Role:      rtmRole,
			ExpiresAt: expiresAt,
		})
		rtmToken = token
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("session signing failed", zap.String("channel", req.Channel), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrSigningFailure, err)
	}
	s.metrics.RecordIssued("rtc")
	s.metrics.RecordIssued("rtm")

	if req.persistable() {
		s.recordCredential(ctx, domain.CredentialRecord{
			UserID:           req.UserID,
			CounterpartyID:   req.CounterpartyID,
			RTCToken:         rtcToken,
			RTMToken:         rtmToken,
			ConsultationType: req.ConsultationType,
			Channel:          req.Channel,
		})
	} else {
		s.logger.Debug("session issued without consultation identifiers; not recorded",
			zap.String("channel", req.Channel))
	}

	return &domain.IssuedCredential{RTCToken: rtcToken, RTMToken: rtmToken, ExpiresAt: expiresAt}, nil
}

// recordCredential hands the record to the dispatcher. Failures are logged only.
func (s *TokenService) recordCredential(ctx context.Context, record domain.CredentialRecord) {
	if s.dispatcher == nil {
		s.logger.Warn("no dispatcher configured; credential not recorded")
		s.metrics.RecordPersist("dropped")
		return
	}
	record.ID = uuid.NewString()
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCredentialIssued,
		Timestamp: s.now().UTC(),
		Payload:   events.CredentialIssuedPayload{Record: record},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("credential record dropped",
			zap.String("record_id", record.ID),
			zap.String("user_id", record.UserID),
			zap.String("counterparty_id", record.CounterpartyID),
			zap.Error(err))
		s.metrics.RecordPersist("dropped")
	}
}

// LatestCredential returns the most recently recorded pair for the user and counterparty.
func (s *TokenService) LatestCredential(ctx context.Context, userID, counterpartyID string) (*domain.CredentialRecord, error) {
	if err := s.validator.ValidateLookup(userID, counterpartyID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	record, found, err := s.credentials.FindLatest(ctx, userID, counterpartyID)
	if err != nil {
		s.logger.Error("error retrieving the latest credential",
			zap.String("user_id", userID),
			zap.String("counterparty_id", counterpartyID),
			zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if !found {
		return nil, apperrors.NewNotFound("token", map[string]any{"userId": userID, "astrologerId": counterpartyID})
	}
	return &record, nil
}
