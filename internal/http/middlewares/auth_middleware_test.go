package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func setupProtectedRouter(mw *middlewares.AuthMiddleware, probe *bool) *gin.Engine {
	r := gin.New()

	r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		*probe = true

		ident, ok := middlewares.IdentityFromContext(c)

		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no identity"})
			return
		}

		// The identity must also ride the request context.
		fromCtx, ok := middlewares.IdentityFrom(c.Request.Context())

		if !ok || fromCtx != ident {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity mismatch"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": ident.ID, "role": ident.Role})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	validToken, err := manager.GenerateAccessToken(7, "bob@example.com", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	expiredManager := auth.NewManager("test-secret", -time.Minute)
	expiredToken, err := expiredManager.GenerateAccessToken(7, "bob@example.com", "user")
	if err != nil {
		t.Fatalf("generate expired token: %v", err)
	}

	tests := []struct {
		name        string
		cookie      *http.Cookie
		wantStatus  int
		wantHandler bool
	}{
		{
			name:       "missing_cookie",
			cookie:     nil,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty_cookie",
			cookie:     &http.Cookie{Name: "token", Value: ""},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage_token",
			cookie:     &http.Cookie{Name: "token", Value: "garbage"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired_token",
			cookie:     &http.Cookie{Name: "token", Value: expiredToken},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:        "valid_token",
			cookie:      &http.Cookie{Name: "token", Value: validToken},
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			handlerRan := false

			mw := middlewares.NewAuthMiddleware(manager, nil)
			r := setupProtectedRouter(mw, &handlerRan)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			// Rejected requests must be side-effect free.
			if handlerRan != tt.wantHandler {
				t.Fatalf("handler ran = %v, want %v", handlerRan, tt.wantHandler)
			}
		})
	}
}

func TestRequireAuthRevocation(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	token, err := manager.GenerateAccessToken(7, "bob@example.com", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := manager.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}

	tests := []struct {
		name        string
		revocations *fakeRevocations
		wantStatus  int
	}{
		{
			name:        "not_revoked",
			revocations: &fakeRevocations{revoked: map[string]bool{}},
			wantStatus:  http.StatusOK,
		},
		{
			name:        "revoked",
			revocations: &fakeRevocations{revoked: map[string]bool{claims.JTI: true}},
			wantStatus:  http.StatusUnauthorized,
		},
		{
			name:        "store_error_fails_closed",
			revocations: &fakeRevocations{err: errors.New("redis down")},
			wantStatus:  http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			handlerRan := false

			mw := middlewares.NewAuthMiddleware(manager, tt.revocations)
			r := setupProtectedRouter(mw, &handlerRan)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.AddCookie(&http.Cookie{Name: "token", Value: token})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
