package auth

import "github.com/spec-kit/rtc-token-service/internal/domain"

// Transport privilege codes embedded in RTC tokens.
const (
	RTCRolePublisher  = 1
	RTCRoleSubscriber = 2
)

// RTMRoleUser is the only messaging privilege the service grants.
const RTMRoleUser = 1

// RoleCodes maps a validated role onto the transport and messaging privilege codes.
// Messaging membership has no publish/subscribe distinction, so its code is fixed.
func RoleCodes(role domain.Role) (rtc int, rtm int, ok bool) {
	switch role {
	case domain.RolePublisher:
		return RTCRolePublisher, RTMRoleUser, true
	case domain.RoleAudience:
		return RTCRoleSubscriber, RTMRoleUser, true
	default:
		return 0, 0, false
	}
}
