package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
)

func claimsWithRole(role domain.Role) *auth.Claims {
	return &auth.Claims{Role: role}
}

func TestPolicyAllows(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		claims *auth.Claims
		want   bool
	}{
		{"public allows anonymous", Public(), nil, true},
		{"public allows authenticated", Public(), claimsWithRole(domain.RoleUser), true},
		{"user rejects anonymous", User(), nil, false},
		{"user allows any authenticated", User(), claimsWithRole(domain.RoleUser), true},
		{"user allows admin too", User(), claimsWithRole(domain.RoleAdmin), true},
		{"role rejects anonymous", Role(domain.RoleAdmin), nil, false},
		{"role rejects wrong role", Role(domain.RoleAdmin), claimsWithRole(domain.RoleUser), false},
		{"role allows matching role", Role(domain.RoleAdmin), claimsWithRole(domain.RoleAdmin), true},
		{"role allows any listed role", Role(domain.RoleAdmin, domain.RoleUser), claimsWithRole(domain.RoleUser), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Allows(tt.claims))
		})
	}
}

func TestUnknownKindDenies(t *testing.T) {
	p := Policy{Kind: Kind(99)}
	assert.False(t, p.Allows(claimsWithRole(domain.RoleAdmin)))
}
