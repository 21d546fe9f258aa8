package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/pkg/token"
)

const identityKey = "auth_identity"

// RequireIdentity rejects requests without a valid bearer token from the
// identity provider and stores the resolved identity in the context.
func RequireIdentity(identitySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromHeader(c, identitySecret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// OptionalIdentity stores the identity when a valid bearer token is present
// and lets the request through either way. Used on routes where an
// anonymous caller is legitimate (invite responses, free-agent signup).
func OptionalIdentity(identitySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := identityFromHeader(c, identitySecret); ok {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

func identityFromHeader(c *gin.Context, identitySecret string) (person.Identity, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return person.Identity{}, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return person.Identity{}, false
	}
	claims, err := token.ValidateIdentityToken(parts[1], identitySecret)
	if err != nil {
		return person.Identity{}, false
	}
	return person.Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
	}, true
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(c *gin.Context) (person.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return person.Identity{}, false
	}
	identity, ok := value.(person.Identity)
	return identity, ok
}
