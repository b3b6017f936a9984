package utils

import (
	"Meduroam/models"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/o1egl/paseto"
)

// AccessTokenExpiry bounds how long an actor token stays valid.
const AccessTokenExpiry = 24 * time.Hour

// TokenClaims carries the authenticated actor identity and role used to
// authorize workflow transitions.
type TokenClaims struct {
	UserID string          `json:"userId"`
	Role   models.UserRole `json:"role"`
	Expiry time.Time       `json:"expiry"`
}

// GetSymmetricKey retrieves the symmetric key from the environment
// variable and ensures it has the required 32-byte length.
func GetSymmetricKey() []byte {
	key := os.Getenv("SYMMETRIC_KEY")
	if len(key) != 32 {
		log.Fatalf("SYMMETRIC_KEY must be 32 bytes long. Current length: %d", len(key))
	}
	return []byte(key)
}

// GenerateAccessToken issues a PASETO token for the given actor.
func GenerateAccessToken(userID string, role models.UserRole) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		Expiry: time.Now().Add(AccessTokenExpiry),
	}

	token, err := paseto.NewV2().Encrypt(GetSymmetricKey(), claims, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ValidateToken decrypts the token, checks expiry, and verifies the
// actor holds one of the required roles (any valid role when none are
// required).
func ValidateToken(tokenString string, requiredRoles ...models.UserRole) (*TokenClaims, error) {
	var claims TokenClaims
	if err := paseto.NewV2().Decrypt(tokenString, GetSymmetricKey(), &claims, nil); err != nil {
		log.Printf("Token decryption failed: %v", err)
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	if time.Now().After(claims.Expiry) {
		return nil, errors.New("token expired")
	}

	if !claims.Role.Valid() {
		return nil, errors.New("unrecognized role in token")
	}

	if len(requiredRoles) == 0 {
		return &claims, nil
	}

	for _, role := range requiredRoles {
		if claims.Role == role {
			return &claims, nil
		}
	}

	log.Printf("Insufficient permissions. Required roles: %v, found role: %v", requiredRoles, claims.Role)
	return nil, errors.New("insufficient permissions")
}
