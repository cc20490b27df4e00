package domain

import "time"

// IssuedCredential is returned to callers after a successful issuance.
type IssuedCredential struct {
	RTCToken  string
	RTMToken  string
	ExpiresAt int64
}

// CredentialRecord is an append-only snapshot of a persisted token pair.
type CredentialRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	CounterpartyID   string    `json:"astrologerId"`
	RTCToken         string    `json:"rtcToken"`
	RTMToken         string    `json:"rtmToken"`
	ConsultationType string    `json:"consultationType"`
	Channel          string    `json:"channel"`
	CreatedAt        time.Time `json:"createdAt"`
}
