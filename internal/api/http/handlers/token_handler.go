package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rtc-token-service/internal/api/dto"
	"github.com/spec-kit/rtc-token-service/internal/domain"
	"github.com/spec-kit/rtc-token-service/internal/service"
	apperrors "github.com/spec-kit/rtc-token-service/pkg/util/errorutil"
)

// TokenHandler exposes token issuance endpoints.
type TokenHandler struct {
	tokens *service.TokenService
}

// NewTokenHandler constructs handler.
func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Ping handles GET /ping.
func (h *TokenHandler) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "pong"})
}

// RTC handles GET /rtc/:channel/:role/:tokentype/:uid.
func (h *TokenHandler) RTC(c *fiber.Ctx) error {
	cred, err := h.tokens.IssueTransport(c.UserContext(), service.IssueTransportRequest{
		Channel: c.Params("channel"),
		Subject: c.Params("uid"),
		Role:    domain.Role(c.Params("role")),
		Mode:    domain.IdentityMode(c.Params("tokentype")),
		TTL:     c.Query("expiry"),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTokenResponse(cred))
}

// RTM handles GET /rtm/:uid.
func (h *TokenHandler) RTM(c *fiber.Ctx) error {
	cred, err := h.tokens.IssueMessaging(c.UserContext(), service.IssueMessagingRequest{
		Subject: c.Params("uid"),
		Role:    domain.Role(c.Query("role")),
		TTL:     c.Query("expiry"),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTokenResponse(cred))
}

// Session handles POST /rte/:channel/:role.
func (h *TokenHandler) Session(c *fiber.Ctx) error {
	var req dto.SessionTokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	cred, err := h.tokens.IssueSession(c.UserContext(), service.IssueSessionRequest{
		Channel:          c.Params("channel"),
		Subject:          req.UID,
		Role:             domain.Role(c.Params("role")),
		TTL:              c.Query("expiry"),
		UserID:           req.UserID,
		CounterpartyID:   req.AstrologerID,
		ConsultationType: req.ConsultationType,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTokenResponse(cred))
}

// Latest handles GET /tokens/:userId/:astrologerId.
func (h *TokenHandler) Latest(c *fiber.Ctx) error {
	record, err := h.tokens.LatestCredential(c.UserContext(), c.Params("userId"), c.Params("astrologerId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLatestTokenResponse(record))
}
