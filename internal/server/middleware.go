package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the auth collaborator in front of this service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	contextActorIDKey   = "actor_id"
	contextActorRoleKey = "actor_role"
)

// IdentityContext copies the upstream identity headers into the request
// context. Authentication itself happens upstream; this service only records
// who acted.
func IdentityContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(HeaderActorID)); actor != "" {
			c.Set(contextActorIDKey, actor)
		}
		if role := strings.TrimSpace(c.GetHeader(HeaderActorRole)); role != "" {
			c.Set(contextActorRoleKey, role)
		}
		c.Next()
	}
}
