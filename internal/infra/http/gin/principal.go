package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"tutorbook/internal/app/auth"
)

const (
	HeaderPrincipalID   = "X-Principal-ID"
	HeaderPrincipalRole = "X-Principal-Role"
)

// PrincipalMiddleware trusts the identity headers set by the upstream gateway. The system
// role is never accepted from outside.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderPrincipalID))
		if id == "" {
			c.Next()
			return
		}
		role, ok := auth.ParseRole(c.GetHeader(HeaderPrincipalRole))
		if !ok || role == auth.RoleSystem {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "unknown principal role", Code: "forbidden"})
			return
		}
		p := auth.Principal{ID: id, Role: role}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Set("principal_id", id)
		c.Next()
	}
}

// requireRole aborts with 401/403 unless the caller has role. An empty role accepts anyone
// authenticated.
func requireRole(c *gin.Context, role auth.Role) (auth.Principal, bool) {
	p, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: auth.ErrUnauthenticated.Error(), Code: "unauthenticated"})
		return auth.Principal{}, false
	}
	if role != "" && p.Role != role {
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: string(role) + " role required", Code: "forbidden"})
		return auth.Principal{}, false
	}
	return p, true
}
