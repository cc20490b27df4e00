package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/rtc-token-service/internal/api/http/handlers"
	"github.com/spec-kit/rtc-token-service/internal/auth"
	"github.com/spec-kit/rtc-token-service/internal/config"
	"github.com/spec-kit/rtc-token-service/internal/events"
	"github.com/spec-kit/rtc-token-service/internal/observability"
	"github.com/spec-kit/rtc-token-service/internal/repository"
	"github.com/spec-kit/rtc-token-service/internal/service"
)

var creds = auth.SignerCredentials{AppID: "app-123", AppCertificate: "cert-abc"}

type testServer struct {
	app *fiber.App
	rtc *auth.TokenSigner
	rtm *auth.TokenSigner
}

func newTestServer(t *testing.T, limiter *rate.Limiter) *testServer {
	t.Helper()

	cfg := config.Config{
		Token: config.TokenConfig{AppID: creds.AppID, AppCertificate: creds.AppCertificate, DefaultTTLSeconds: 3600},
	}
	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	rtc, err := auth.NewRTCSigner(creds)
	require.NoError(t, err)
	rtm, err := auth.NewRTMSigner(creds)
	require.NoError(t, err)

	credentials := repository.NewMemoryCredentialRepository()
	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewCredentialRecorder(dispatcher, credentials, logger, metrics, cfg.Store).RegisterHandlers()
	tokens := service.NewTokenService(cfg, service.TokenDependencies{
		RTCSigner:   rtc,
		RTMSigner:   rtm,
		Credentials: credentials,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	app := NewApp("test")
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("test", "v0", nil),
		Tokens:  handlers.NewTokenHandler(tokens),
		Metrics: registry,
		Limiter: limiter,
	})
	return &testServer{app: app, rtc: rtc, rtm: rtm}
}

func (s *testServer) do(t *testing.T, method, target, body string) (int, map[string]any, nethttp.Header) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload, resp.Header
}

func errorCode(payload map[string]any) string {
	errBody, _ := payload["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestPing(t *testing.T) {
	s := newTestServer(t, nil)
	status, payload, _ := s.do(t, fiber.MethodGet, "/ping", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "pong", payload["message"])
}

func TestRTCRoute(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("issues a transport token", func(t *testing.T) {
		before := time.Now().Unix()
		status, payload, header := s.do(t, fiber.MethodGet, "/rtc/c1/publisher/uid/42?expiry=120", "")
		require.Equal(t, fiber.StatusOK, status)
		require.NotContains(t, payload, "rtmToken")
		require.Equal(t, "private, no-cache, no-store, must-revalidate", header.Get(fiber.HeaderCacheControl))

		claims, err := s.rtc.ParseToken(payload["rtcToken"].(string))
		require.NoError(t, err)
		require.Equal(t, "c1", claims.Channel)
		require.Equal(t, "42", claims.Subject)
		require.Equal(t, auth.RTCRolePublisher, claims.Privilege)
		require.InDelta(t, before+120, claims.ExpiresAt.Unix(), 1)
		require.Equal(t, claims.ExpiresAt.Unix(), int64(payload["expiresAt"].(float64)))
	})

	t.Run("account tokens for audience", func(t *testing.T) {
		status, payload, _ := s.do(t, fiber.MethodGet, "/rtc/c1/audience/userAccount/alice", "")
		require.Equal(t, fiber.StatusOK, status)

		claims, err := s.rtc.ParseToken(payload["rtcToken"].(string))
		require.NoError(t, err)
		require.Equal(t, auth.RTCRoleSubscriber, claims.Privilege)
		require.EqualValues(t, "userAccount", claims.Mode)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		status, payload, _ := s.do(t, fiber.MethodGet, "/rtc/c1/moderator/uid/42", "")
		require.Equal(t, fiber.StatusBadRequest, status)
		require.Equal(t, "INVALID_ROLE", errorCode(payload))
	})

	t.Run("rejects unknown token type", func(t *testing.T) {
		status, payload, _ := s.do(t, fiber.MethodGet, "/rtc/c1/publisher/email/42", "")
		require.Equal(t, fiber.StatusBadRequest, status)
		require.Equal(t, "INVALID_TOKEN_TYPE", errorCode(payload))
	})

	t.Run("rejects non numeric expiry", func(t *testing.T) {
		status, payload, _ := s.do(t, fiber.MethodGet, "/rtc/c1/publisher/uid/42?expiry=soon", "")
		require.Equal(t, fiber.StatusBadRequest, status)
		require.Equal(t, "INVALID_EXPIRY", errorCode(payload))
	})

	t.Run("allows any origin", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/rtc/c1/publisher/uid/42", nil)
		req.Header.Set(fiber.HeaderOrigin, "https://app.example.com")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	})
}

func TestRTMRoute(t *testing.T) {
	s := newTestServer(t, nil)

	status, payload, _ := s.do(t, fiber.MethodGet, "/rtm/42?role=publisher", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NotContains(t, payload, "rtcToken")

	claims, err := s.rtm.ParseToken(payload["rtmToken"].(string))
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, auth.RTMRoleUser, claims.Privilege)
}

func TestSessionAndLatestRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"userId":"u1","astrologerId":"a1","consultation_type":"chat"}`

	status, payload, _ := s.do(t, fiber.MethodGet, "/tokens/u1/a1", "")
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", errorCode(payload))

	status, first, _ := s.do(t, fiber.MethodPost, "/rte/c1/publisher", body)
	require.Equal(t, fiber.StatusOK, status)
	require.NotEmpty(t, first["rtcToken"])
	require.NotEmpty(t, first["rtmToken"])

	claims, err := s.rtc.ParseToken(first["rtcToken"].(string))
	require.NoError(t, err)
	require.Equal(t, "a1", claims.Subject)

	status, latest, _ := s.do(t, fiber.MethodGet, "/tokens/u1/a1", "")
	require.Equal(t, fiber.StatusOK, status)
	token := latest["token"].(map[string]any)
	require.Equal(t, first["rtcToken"], token["rtcToken"])
	require.Equal(t, "chat", token["consultationType"])
	require.Equal(t, "c1", token["channel"])
	require.Equal(t, "a1", token["astrologerId"])

	status, second, _ := s.do(t, fiber.MethodPost, "/rte/c1/audience?expiry=60", body)
	require.Equal(t, fiber.StatusOK, status)

	status, latest, _ = s.do(t, fiber.MethodGet, "/tokens/u1/a1", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, second["rtcToken"], latest["token"].(map[string]any)["rtcToken"])

	status, payload, _ = s.do(t, fiber.MethodPost, "/rte/c1/moderator", body)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "INVALID_ROLE", errorCode(payload))

	status, payload, _ = s.do(t, fiber.MethodPost, "/rte/c1/publisher", `{"userId":"u1"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "MISSING_SUBJECT", errorCode(payload))

	status, payload, _ = s.do(t, fiber.MethodPost, "/rte/c1/publisher", `{not json`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", errorCode(payload))
	require.Equal(t, "invalid payload", payload["error"].(map[string]any)["message"])
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, rate.NewLimiter(rate.Every(time.Hour), 1))

	status, _, _ := s.do(t, fiber.MethodGet, "/rtm/42", "")
	require.Equal(t, fiber.StatusOK, status)

	status, payload, _ := s.do(t, fiber.MethodGet, "/rtm/42", "")
	require.Equal(t, fiber.StatusTooManyRequests, status)
	require.Equal(t, "RATE_LIMITED", errorCode(payload))

	status, _, _ = s.do(t, fiber.MethodGet, "/tokens/u1/a1", "")
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	status, payload, _ := s.do(t, fiber.MethodGet, "/health/ready", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "ready", payload["status"])

	_, _, _ = s.do(t, fiber.MethodGet, "/rtm/42", "")

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), `rtctoken_tokens_issued_total{kind="rtm"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	status, payload, _ := s.do(t, fiber.MethodGet, "/nope", "")
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", errorCode(payload))
}
