package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/spec-kit/rtc-token-service/pkg/util/errorutil"
)

// DefaultTTLSeconds applies when the caller does not ask for a lifetime.
const DefaultTTLSeconds int64 = 3600

// ExpiryCalculator turns a caller supplied lifetime into an absolute expiry.
type ExpiryCalculator struct {
	defaultTTL int64
	maxTTL     int64
}

// NewExpiryCalculator builds a calculator. maxTTL of zero leaves lifetimes unbounded.
func NewExpiryCalculator(defaultTTL, maxTTL int64) ExpiryCalculator {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTLSeconds
	}
	return ExpiryCalculator{defaultTTL: defaultTTL, maxTTL: maxTTL}
}

// ExpiresAt returns now plus the requested lifetime in epoch seconds. raw is a base-10
// number of seconds; empty means the default. Anything else that is not a positive
// integer (or exceeds the configured maximum) is rejected.
func (c ExpiryCalculator) ExpiresAt(raw string, now time.Time) (int64, error) {
	ttl := c.defaultTTL
	if raw = strings.TrimSpace(raw); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return 0, apperrors.WithDetails(apperrors.ErrInvalidExpiry, map[string]any{"expiry": raw})
		}
		ttl = parsed
	}

	if c.maxTTL > 0 && ttl > c.maxTTL {
		return 0, apperrors.WithDetails(apperrors.ErrInvalidExpiry, map[string]any{"expiry": raw, "max": c.maxTTL})
	}

	current := now.Unix()
	if ttl > math.MaxInt64-current {
		return 0, apperrors.WithDetails(apperrors.ErrInvalidExpiry, map[string]any{"expiry": raw})
	}
	return current + ttl, nil
}
