package protocol

import (
	"crypto/aes"
	"encoding/hex"
	"fmt"
	"strings"
)

// DeriveAccessToken computes the access token required on authenticated
// requests: the uppercase hex form of the session token encrypted with the
// pairing key using AES in ECB mode. Key and token must both be exactly one
// AES block (16 ASCII characters).
func DeriveAccessToken(key, token string) (string, error) {
	if key == "" {
		return "", NewCredentialError("pairing key not set, supply the key printed in the vendor app")
	}
	if token == "" {
		return "", NewCredentialError("session token not yet retrieved, run a device list exchange first")
	}

	keyBytes := []byte(key)
	tokenBytes := []byte(token)
	if len(keyBytes) != aes.BlockSize {
		return "", NewCredentialError(fmt.Sprintf("pairing key must be %d bytes, got %d", aes.BlockSize, len(keyBytes)))
	}
	if len(tokenBytes) != aes.BlockSize {
		return "", NewCredentialError(fmt.Sprintf("session token must be %d bytes, got %d", aes.BlockSize, len(tokenBytes)))
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return "", NewCredentialError(fmt.Sprintf("invalid pairing key: %v", err))
	}

	// The token is a single block, so ECB degenerates to one Encrypt call.
	encrypted := make([]byte, aes.BlockSize)
	block.Encrypt(encrypted, tokenBytes)

	return strings.ToUpper(hex.EncodeToString(encrypted)), nil
}
