package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/rtc-token-service/internal/domain"
	apperrors "github.com/spec-kit/rtc-token-service/pkg/util/errorutil"
)

const (
	tagRequired = "required"
	tagRole     = "required,oneof=publisher audience"
	tagMode     = "required,oneof=uid userAccount"
)

// rule pairs a value and its validation tag with the error reported when it fails.
type rule struct {
	field string
	value string
	tag   string
	err   *apperrors.DomainError
}

// RequestValidator rejects malformed issuance requests before any signing happens.
// Rules run in declaration order and the first failure is reported.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator builds a validator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// ValidateTransport checks channel, subject, role and identity mode. In uid mode the
// subject is not required to be numeric: session issuance signs with the
// counterparty id when no uid is supplied.
func (v *RequestValidator) ValidateTransport(req IssueTransportRequest) error {
	return v.check(
		channelRule(req.Channel),
		subjectRule(req.Subject),
		roleRule(req.Role),
		rule{field: "tokentype", value: string(req.Mode), tag: tagMode, err: apperrors.ErrInvalidTokenType},
	)
}

// ValidateMessaging checks the subject only; messaging tokens carry no channel or role.
func (v *RequestValidator) ValidateMessaging(req IssueMessagingRequest) error {
	return v.check(subjectRule(req.Subject))
}

// ValidateSession checks channel, subject and role for combined issuance.
func (v *RequestValidator) ValidateSession(req IssueSessionRequest) error {
	return v.check(
		channelRule(req.Channel),
		subjectRule(req.Subject),
		roleRule(req.Role),
	)
}

// ValidateLookup checks the composite key of a retrieval.
func (v *RequestValidator) ValidateLookup(userID, counterpartyID string) error {
	missing := map[string]any{}
	if v.validate.Var(strings.TrimSpace(userID), tagRequired) != nil {
		missing["userId"] = "required"
	}
	if v.validate.Var(strings.TrimSpace(counterpartyID), tagRequired) != nil {
		missing["astrologerId"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("userId and astrologerId are required", missing)
	}
	return nil
}

func (v *RequestValidator) check(rules ...rule) error {
	for _, r := range rules {
		if err := v.validate.Var(r.value, r.tag); err != nil {
			return apperrors.WithDetails(r.err, map[string]any{r.field: r.value})
		}
	}
	return nil
}

func channelRule(channel string) rule {
	return rule{field: "channel", value: strings.TrimSpace(channel), tag: tagRequired, err: apperrors.ErrMissingChannel}
}

func subjectRule(subject string) rule {
	return rule{field: "uid", value: strings.TrimSpace(subject), tag: tagRequired, err: apperrors.ErrMissingSubject}
}

func roleRule(role domain.Role) rule {
	return rule{field: "role", value: string(role), tag: tagRole, err: apperrors.ErrInvalidRole}
}
