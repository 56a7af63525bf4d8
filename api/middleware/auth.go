package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity is the authenticated caller forwarded by the upstream
// gateway. Credential verification happens there; this service only
// reads the result.
type Identity struct {
	SubjectID string
	Role      string
}

// Context keys
const (
	IdentityContextKey = "identity"

	// Headers set by the gateway after authentication
	HeaderSubjectID = "X-Subject-ID"
	HeaderRole      = "X-Subject-Role"

	// AdminRole marks administrators
	AdminRole = "Admin"
)

// Authenticate extracts the caller identity from the gateway headers.
// Requests without an identity are rejected.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID := c.GetHeader(HeaderSubjectID)
		if subjectID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Subject identity required",
			})
			c.Abort()
			return
		}

		c.Set(IdentityContextKey, Identity{
			SubjectID: subjectID,
			Role:      c.GetHeader(HeaderRole),
		})
		c.Next()
	}
}

// RequireAdmin gates a route to administrators
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok || identity.Role != AdminRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetIdentity returns the authenticated identity from the context
func GetIdentity(c *gin.Context) (Identity, bool) {
	value, exists := c.Get(IdentityContextKey)
	if !exists {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}
