package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/security"
)

type AccountsStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (user.Public, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type AuthHandler struct {
	accounts      AccountsStore
	jwt           *auth.Manager
	revoker       TokenRevoker
	secureCookies bool
}

// NewAuthHandler wires the sign-up/sign-in/sign-out flows. revoker may
// be nil when no revocation store is available.
func NewAuthHandler(accounts AccountsStore, jwtManager *auth.Manager, revoker TokenRevoker, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		jwt:           jwtManager,
		revoker:       revoker,
		secureCookies: secureCookies,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "password hashing failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	// Everybody signs up as a plain user; admins come from seeding or an
	// existing admin changing a role.
	u, err := h.accounts.Create(ctx.Request.Context(), req.Name, req.Email, hash, user.RoleUser)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondValidationFailed(ctx, []FieldError{
				{Field: "email", Message: "is already in use"},
			})
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "create user failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "token generation failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setTokenCookie(ctx, token)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    u,
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	found, err := h.accounts.GetByEmail(ctx.Request.Context(), req.Email)

	if err != nil {
		// Same response for unknown email and bad password.
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	err = security.CheckPassword(found.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	token, err := h.jwt.GenerateAccessToken(found.ID, found.Email, found.Role)

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "token generation failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setTokenCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User signed in successfully",
		"user":    found.Public(),
	})
}

func (h *AuthHandler) SignOut(ctx *gin.Context) {
	raw, err := ctx.Cookie(middlewares.AccessTokenCookie)

	if err == nil && raw != "" && h.revoker != nil {
		claims, err := h.jwt.VerifyAccessToken(raw)

		if err == nil && claims.ExpiresAt != nil {
			ttl := time.Until(claims.ExpiresAt.Time)

			err = h.revoker.Revoke(ctx.Request.Context(), claims.JTI, ttl)

			if err != nil {
				slog.Default().ErrorContext(ctx.Request.Context(), "token revocation failed", "err", err)
			}
		}
	}

	h.clearTokenCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User signed out successfully",
	})
}

func (h *AuthHandler) setTokenCookie(ctx *gin.Context, token string) {
	maxAge := int(h.jwt.AccessTTL().Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		middlewares.AccessTokenCookie,
		token,
		maxAge,
		"/",
		"",
		h.secureCookies,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearTokenCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		middlewares.AccessTokenCookie,
		"",
		-1,
		"/",
		"",
		h.secureCookies,
		true,
	)
}
