package models

import (
	"time"

	"github.com/google/uuid"
)

// APIConfiguration is an organization's stored provider credential.
// APIKey is decrypted in memory; the table holds only the ciphertext.
type APIConfiguration struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Provider       string    `json:"provider"`
	APIKey         string    `json:"-"`
	Model          string    `json:"model,omitempty"`
	IsActive       bool      `json:"is_active"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MaskedAPIKey returns a masked version: "sk-a...wxyz".
func MaskedAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
