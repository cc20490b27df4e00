package events

import (
	"time"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCredentialIssued EventType = "credential_issued"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CredentialIssuedPayload carries a record awaiting persistence.
type CredentialIssuedPayload struct {
	Record domain.CredentialRecord `json:"record"`
}
