package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/rtc-token-service/internal/domain"
)

const (
	flavorRTC = "rtc"
	flavorRTM = "rtm"
)

// SignRequest carries everything a signer embeds in a token.
type SignRequest struct {
	Channel   string
	Subject   string
	Mode      domain.IdentityMode
	Role      int
	ExpiresAt int64
}

// Signer produces an opaque bearer token. Implementations must be safe for concurrent use.
type Signer interface {
	Sign(req SignRequest) (string, error)
}

// Claims describes the token payload shared by both signer flavors.
type Claims struct {
	Channel   string              `json:"channel,omitempty"`
	Mode      domain.IdentityMode `json:"mode,omitempty"`
	Privilege int                 `json:"privilege"`
	jwt.RegisteredClaims
}

// TokenSigner signs HS256 tokens for one flavor with a key derived from the app certificate.
type TokenSigner struct {
	appID  string
	flavor string
	key    []byte
}

// NewRTCSigner builds the transport channel signer.
func NewRTCSigner(creds SignerCredentials) (*TokenSigner, error) {
	return newTokenSigner(creds, flavorRTC)
}

// NewRTMSigner builds the messaging channel signer.
func NewRTMSigner(creds SignerCredentials) (*TokenSigner, error) {
	return newTokenSigner(creds, flavorRTM)
}

func newTokenSigner(creds SignerCredentials, flavor string) (*TokenSigner, error) {
	if creds.AppID == "" || creds.AppCertificate == "" {
		return nil, errors.New("app id and certificate are required")
	}
	key, err := deriveKey(creds, flavor)
	if err != nil {
		return nil, err
	}
	return &TokenSigner{appID: creds.AppID, flavor: flavor, key: key}, nil
}

// Sign builds and signs a token. The output depends only on the request and credentials.
func (s *TokenSigner) Sign(req SignRequest) (string, error) {
	if req.Subject == "" {
		return "", errors.New("subject is required")
	}
	claims := &Claims{
		Channel:   req.Channel,
		Mode:      req.Mode,
		Privilege: req.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.appID,
			Subject:   req.Subject,
			Audience:  jwt.ClaimStrings{s.flavor},
			ExpiresAt: jwt.NewNumericDate(time.Unix(req.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", s.flavor, err)
	}
	return tokenString, nil
}

// ParseToken validates a token issued by this signer and returns its claims.
func (s *TokenSigner) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithAudience(s.flavor), jwt.WithIssuer(s.appID))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
