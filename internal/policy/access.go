// Package policy declares route access requirements as data. Enforcement is
// a pure function over the declared policy and the authenticated claims, so
// every endpoint's requirement is inspectable without reading its handler.
package policy

import (
	"net/http"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
)

// Kind identifies one of the closed set of access policies.
type Kind int

const (
	// None admits every request. Used by public endpoints such as the
	// merchant payment entry and acquirer callback, which carry their own
	// signature-based authentication.
	None Kind = iota
	// RequireUser admits any authenticated account.
	RequireUser
	// RequireRole admits authenticated accounts holding one of the listed
	// roles.
	RequireRole
)

// Policy is an access requirement attached to a route.
type Policy struct {
	Kind  Kind
	Roles []domain.Role
}

// Public is the open policy.
func Public() Policy { return Policy{Kind: None} }

// User requires any authenticated account.
func User() Policy { return Policy{Kind: RequireUser} }

// Role requires one of the given roles.
func Role(roles ...domain.Role) Policy { return Policy{Kind: RequireRole, Roles: roles} }

// Allows reports whether the given claims satisfy the policy. Nil claims
// represent an unauthenticated request.
func (p Policy) Allows(claims *auth.Claims) bool {
	switch p.Kind {
	case None:
		return true
	case RequireUser:
		return claims != nil
	case RequireRole:
		if claims == nil {
			return false
		}
		for _, r := range p.Roles {
			if claims.Role == r {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Middleware enforces the policy on a chi route. Authenticate must run first
// for any policy other than None.
func (p Policy) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.ClaimsFromContext(r.Context())
			if !p.Allows(claims) {
				if claims == nil {
					http.Error(w, `{"code":"UNAUTHORIZED","message":"authentication required"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"code":"FORBIDDEN","message":"insufficient role"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
