package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rtc-token-service/internal/domain"
	apperrors "github.com/spec-kit/rtc-token-service/pkg/util/errorutil"
)

func TestRequestValidator_ValidateTransport(t *testing.T) {
	v := NewRequestValidator()
	valid := IssueTransportRequest{Channel: "c1", Subject: "42", Role: domain.RolePublisher, Mode: domain.IdentityModeUID}

	tests := []struct {
		name   string
		mutate func(*IssueTransportRequest)
		want   error
	}{
		{name: "valid publisher", mutate: func(*IssueTransportRequest) {}},
		{name: "valid audience by account", mutate: func(r *IssueTransportRequest) {
			r.Role = domain.RoleAudience
			r.Mode = domain.IdentityModeAccount
			r.Subject = "alice"
		}},
		{name: "missing channel", mutate: func(r *IssueTransportRequest) { r.Channel = "" }, want: apperrors.ErrMissingChannel},
		{name: "blank channel", mutate: func(r *IssueTransportRequest) { r.Channel = "   " }, want: apperrors.ErrMissingChannel},
		{name: "missing channel reported before bad role", mutate: func(r *IssueTransportRequest) {
			r.Channel = ""
			r.Role = "moderator"
		}, want: apperrors.ErrMissingChannel},
		{name: "missing subject", mutate: func(r *IssueTransportRequest) { r.Subject = "" }, want: apperrors.ErrMissingSubject},
		{name: "missing subject reported before bad role", mutate: func(r *IssueTransportRequest) {
			r.Subject = ""
			r.Role = ""
		}, want: apperrors.ErrMissingSubject},
		{name: "unknown role", mutate: func(r *IssueTransportRequest) { r.Role = "moderator" }, want: apperrors.ErrInvalidRole},
		{name: "empty role", mutate: func(r *IssueTransportRequest) { r.Role = "" }, want: apperrors.ErrInvalidRole},
		{name: "role is case sensitive", mutate: func(r *IssueTransportRequest) { r.Role = "Publisher" }, want: apperrors.ErrInvalidRole},
		{name: "unknown token type", mutate: func(r *IssueTransportRequest) { r.Mode = "email" }, want: apperrors.ErrInvalidTokenType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := v.ValidateTransport(req)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequestValidator_ValidateMessaging(t *testing.T) {
	v := NewRequestValidator()

	require.NoError(t, v.ValidateMessaging(IssueMessagingRequest{Subject: "42", Role: "moderator"}))
	require.ErrorIs(t, v.ValidateMessaging(IssueMessagingRequest{}), apperrors.ErrMissingSubject)
}

func TestRequestValidator_ValidateLookup(t *testing.T) {
	v := NewRequestValidator()

	require.NoError(t, v.ValidateLookup("u1", "a1"))

	err := v.ValidateLookup("", " ")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	require.Contains(t, domainErr.Details, "userId")
	require.Contains(t, domainErr.Details, "astrologerId")
}
