package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

const (
	identityKey    = "identity"
	tokenIDKey     = "tokenID"
	tokenExpiryKey = "tokenExpiry"
)

// AccessTokenValidator verifies bearer tokens.
type AccessTokenValidator interface {
	ValidateAccess(token string) (*utils.Claims, error)
}

// IdentityResolver turns a verified token into the caller's Identity.
type IdentityResolver interface {
	TokenRevoked(ctx context.Context, tokenID string) (bool, error)
	Identify(ctx context.Context, userID string) (services.Identity, error)
}

// AuthMiddleware creates a middleware for JWT authentication. The caller's
// staff flag is resolved from the account store on every request.
func AuthMiddleware(tokens AccessTokenValidator, resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateAccess(parts[1])
		if err != nil {
			utils.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		if claims.ID != "" {
			revoked, err := resolver.TokenRevoked(ctx, claims.ID)
			if err != nil {
				utils.RespondError(c, err)
				c.Abort()
				return
			}
			if revoked {
				utils.Unauthorized(c, "Token has been revoked")
				c.Abort()
				return
			}
		}

		ident, err := resolver.Identify(ctx, claims.UserID)
		if err != nil {
			utils.RespondError(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, ident)
		c.Set(tokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(tokenExpiryKey, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// IdentityFromContext returns the identity stored by AuthMiddleware.
func IdentityFromContext(c *gin.Context) (services.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return services.Identity{}, false
	}
	ident, ok := v.(services.Identity)
	return ident, ok
}

// MustIdentity returns the caller's identity or writes a 401 and aborts.
func MustIdentity(c *gin.Context) (services.Identity, bool) {
	ident, ok := IdentityFromContext(c)
	if !ok {
		utils.RespondError(c, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		c.Abort()
	}
	return ident, ok
}

// AccessTokenFromContext returns the id and expiry of the access token
// used for the request.
func AccessTokenFromContext(c *gin.Context) (string, time.Time) {
	id := c.GetString(tokenIDKey)
	exp, _ := c.Get(tokenExpiryKey)
	expiry, _ := exp.(time.Time)
	return id, expiry
}
