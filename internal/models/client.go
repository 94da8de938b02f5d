package models

import (
	"strings"
)

// ApiClient represents an authenticated API client
type ApiClient struct {
	Name        string   `json:"name"`
	ApiKey      string   `json:"-"` // Never serialize
	Permissions []string `json:"permissions"`
}

// HasPermission checks if client has specific permission
// Supports wildcard permissions like "records:*"
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil {
		return false
	}

	for _, perm := range c.Permissions {
		if perm == required || perm == "*" {
			return true
		}

		// Wildcard match (e.g., "records:*" matches "records:read")
		if strings.HasSuffix(perm, ":*") {
			prefix := strings.TrimSuffix(perm, "*")
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}
	}

	return false
}

// MaskedApiKey returns first 8 characters of API key for logging
func (c *ApiClient) MaskedApiKey() string {
	if len(c.ApiKey) < 8 {
		return "***"
	}
	return c.ApiKey[:8] + "..."
}
