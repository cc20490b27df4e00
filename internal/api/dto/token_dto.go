package dto

import (
	"time"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

// SessionTokenRequest is the body of POST /rte/:channel/:role.
type SessionTokenRequest struct {
	UID              string `json:"uid"`
	UserID           string `json:"userId"`
	AstrologerID     string `json:"astrologerId"`
	ConsultationType string `json:"consultation_type"`
}

// TokenResponse carries whichever tokens were issued.
type TokenResponse struct {
	RTCToken  string `json:"rtcToken,omitempty"`
	RTMToken  string `json:"rtmToken,omitempty"`
	ExpiresAt int64  `json:"expiresAt"`
}

// NewTokenResponse converts an issued credential.
func NewTokenResponse(cred *domain.IssuedCredential) TokenResponse {
	return TokenResponse{RTCToken: cred.RTCToken, RTMToken: cred.RTMToken, ExpiresAt: cred.ExpiresAt}
}

// CredentialRecordResponse is a recorded token pair.
type CredentialRecordResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	AstrologerID     string    `json:"astrologerId"`
	RTCToken         string    `json:"rtcToken"`
	RTMToken         string    `json:"rtmToken"`
	ConsultationType string    `json:"consultationType"`
	Channel          string    `json:"channel"`
	CreatedAt        time.Time `json:"createdAt"`
}

// LatestTokenResponse wraps the record the way clients expect it.
type LatestTokenResponse struct {
	Token CredentialRecordResponse `json:"token"`
}

// NewLatestTokenResponse converts a stored record.
func NewLatestTokenResponse(record *domain.CredentialRecord) LatestTokenResponse {
	return LatestTokenResponse{Token: CredentialRecordResponse{
		ID:               record.ID,
		UserID:           record.UserID,
		AstrologerID:     record.CounterpartyID,
		RTCToken:         record.RTCToken,
		RTMToken:         record.RTMToken,
		ConsultationType: record.ConsultationType,
		Channel:          record.Channel,
		CreatedAt:        record.CreatedAt,
	}}
}
