package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const signingKeySize = 32

// SignerCredentials are the process-wide app identifier and certificate.
type SignerCredentials struct {
	AppID          string
	AppCertificate string
}

// String redacts the certificate so credentials can be logged safely.
func (c SignerCredentials) String() string {
	return fmt.Sprintf("SignerCredentials{AppID: %s, AppCertificate: ****}", c.AppID)
}

// deriveKey expands the certificate into an independent key per signer flavor.
func deriveKey(creds SignerCredentials, flavor string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(creds.AppCertificate), []byte(creds.AppID), []byte("token-signer/"+flavor))
	key := make([]byte, signingKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", flavor, err)
	}
	return key, nil
}
