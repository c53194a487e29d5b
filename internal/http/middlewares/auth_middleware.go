package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
)

// AccessTokenCookie is the cookie the access token travels in.
const AccessTokenCookie = "token"

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	jwt     TokenVerifier
	revoked RevocationChecker
}

// NewAuthMiddleware builds the cookie-JWT gate. revoked may be nil when
// no revocation store is wired (tests, store-less runs).
func NewAuthMiddleware(jwt TokenVerifier, revoked RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, revoked: revoked}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(AccessTokenCookie)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "No access token provided",
			})
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid or expired token",
			})
			return
		}

		if m.revoked != nil {
			revoked, err := m.revoked.IsRevoked(c.Request.Context(), claims.JTI)

			if err != nil {
				// Fail closed: an unreachable revocation store must not
				// let a signed-out token back in.
				slog.Default().ErrorContext(c.Request.Context(), "revocation check failed", "err", err)
				revoked = true
			}

			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "Unauthorized",
					"message": "Invalid or expired token",
				})
				return
			}
		}

		ident := claims.Identity()

		// Stash the identity on both the gin context and the request
		// context so handlers and anything below them see the same actor.
		c.Set(CtxIdentity, ident)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), ident))

		c.Next()
	}
}

// IdentityFromContext returns the authenticated actor set by RequireAuth.
func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return user.Identity{}, false
	}
	ident, ok := v.(user.Identity)
	return ident, ok
}
