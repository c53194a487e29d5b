package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/userhub/internal/http/handlers"
)

type bindTarget struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func setupBindRouter() *gin.Engine {
	r := gin.New()

	r.POST("/bind", func(c *gin.Context) {
		var req bindTarget

		if !handlers.BindJSON(c, &req) {
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "valid",
			body:       `{"name": "Bob", "email": "bob@example.com", "password": "longenough"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing_required_field",
			body:       `{"email": "bob@example.com", "password": "longenough"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "name",
		},
		{
			name:       "invalid_email",
			body:       `{"name": "Bob", "email": "nope", "password": "longenough"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "email",
		},
		{
			name:       "short_password",
			body:       `{"name": "Bob", "email": "bob@example.com", "password": "short"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "password",
		},
		{
			name:       "empty_body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantField:  "body",
		},
		{
			name:       "syntax_error",
			body:       `{"name": `,
			wantStatus: http.StatusBadRequest,
			wantField:  "body",
		},
		{
			name:       "type_mismatch",
			body:       `{"name": 42, "email": "bob@example.com", "password": "longenough"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "name",
		},
	}

	r := setupBindRouter()

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/bind", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus != http.StatusBadRequest {
				return
			}

			var resp struct {
				Error   string       `json:"error"`
				Details []FieldError `json:"details"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if resp.Error != "Validation Failed" {
				t.Fatalf("got error %q, want %q", resp.Error, "Validation Failed")
			}

			if len(resp.Details) == 0 {
				t.Fatal("details list is empty")
			}

			found := false

			for _, d := range resp.Details {
				if d.Field == tt.wantField {
					found = true

					if d.Message == "" {
						t.Fatalf("field %q has an empty message", d.Field)
					}
				}
			}

			if !found {
				t.Fatalf("no detail for field %q in %s", tt.wantField, w.Body.String())
			}
		})
	}
}
