package models

import (
	"strings"
	"time"
)

// Permissions granted to API clients
const (
	PermCatalogRead      = "catalog:read"
	PermCandidatesRead   = "candidates:read"
	PermCandidatesWrite  = "candidates:write"
	PermEnrollmentsRead  = "enrollments:read"
	PermEnrollmentsWrite = "enrollments:write"
	PermEnrollmentsAdmin = "enrollments:admin"
	PermResultsRead      = "results:read"
	PermResultsWrite     = "results:write"
	PermMarksRead        = "marks:read"
)

// Staff roles known to the back-office
const (
	RoleAdmin                = "admin"
	RoleRegistrar            = "registrar"
	RoleCenterRepresentative = "center_representative"
)

// ApiClient is the authenticated caller of a request. It is carried in the
// request context and is the only source of role-based gating.
type ApiClient struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	ApiKey      string            `json:"-"`
	Role        string            `json:"role"`
	CenterID    string            `json:"center_id,omitempty"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUsedAt  *time.Time        `json:"last_used_at,omitempty"`
	Permissions []string          `json:"permissions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// HasPermission checks if the client holds a permission.
// "results:*" grants every results permission and "*" grants all.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	for _, perm := range c.Permissions {
		if perm == required || perm == "*" {
			return true
		}
		if strings.HasSuffix(perm, ":*") && strings.HasPrefix(required, strings.TrimSuffix(perm, "*")) {
			return true
		}
	}

	return false
}

// CanViewMarks reports whether mark values may be shown to this client.
// Center representatives see grades and verdicts only.
func (c *ApiClient) CanViewMarks() bool {
	if c == nil || c.Role == RoleCenterRepresentative {
		return false
	}
	return c.HasPermission(PermMarksRead)
}

// MaskedApiKey returns the first 8 characters of the API key for logging
func (c *ApiClient) MaskedApiKey() string {
	if len(c.ApiKey) < 8 {
		return "***"
	}
	return c.ApiKey[:8] + "..."
}
