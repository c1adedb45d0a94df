package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		client   *ApiClient
		required string
		want     bool
	}{
		{"nil client", nil, PermCatalogRead, false},
		{"exact", &ApiClient{IsActive: true, Permissions: []string{PermResultsRead}}, PermResultsRead, true},
		{"wildcard", &ApiClient{IsActive: true, Permissions: []string{"*"}}, PermEnrollmentsAdmin, true},
		{"resource wildcard", &ApiClient{IsActive: true, Permissions: []string{"results:*"}}, PermResultsWrite, true},
		{"resource wildcard other resource", &ApiClient{IsActive: true, Permissions: []string{"results:*"}}, PermEnrollmentsRead, false},
		{"inactive", &ApiClient{IsActive: false, Permissions: []string{"*"}}, PermCatalogRead, false},
		{"missing", &ApiClient{IsActive: true, Permissions: []string{PermCatalogRead}}, PermCandidatesWrite, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.client.HasPermission(tt.required))
		})
	}
}

func TestCanViewMarks(t *testing.T) {
	admin := &ApiClient{Role: RoleAdmin, IsActive: true, Permissions: []string{"*"}}
	assert.True(t, admin.CanViewMarks())

	rep := &ApiClient{Role: RoleCenterRepresentative, IsActive: true, Permissions: []string{"*"}}
	assert.False(t, rep.CanViewMarks(), "center representatives never see marks")

	registrar := &ApiClient{Role: RoleRegistrar, IsActive: true, Permissions: []string{PermResultsRead}}
	assert.False(t, registrar.CanViewMarks())

	var nobody *ApiClient
	assert.False(t, nobody.CanViewMarks())
}

func TestMaskedApiKey(t *testing.T) {
	assert.Equal(t, "sk_live_...", (&ApiClient{ApiKey: "sk_live_abcdef"}).MaskedApiKey())
	assert.Equal(t, "***", (&ApiClient{ApiKey: "short"}).MaskedApiKey())
}
