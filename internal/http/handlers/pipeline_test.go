package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/policy"
	"github.com/geocoder89/userhub/internal/repo/memory"
	"github.com/geocoder89/userhub/internal/security"
)

// End-to-end pipeline over the in-memory store: cookie auth, policy
// checks, hashing and persistence all wired the way the router wires
// them.

func setupPipeline(t *testing.T) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()

	repo := memory.NewUsersRepo()
	manager := auth.NewManager("test-secret", time.Hour)

	authMiddleware := middlewares.NewAuthMiddleware(manager, nil)
	usersHandler := handlers.NewUsersHandler(repo, policy.NewEvaluator())
	authHandler := handlers.NewAuthHandler(repo, manager, nil, false)

	r := gin.New()

	r.POST("/auth/sign-up", authHandler.SignUp)
	r.POST("/auth/sign-in", authHandler.SignIn)
	r.POST("/auth/sign-out", authHandler.SignOut)

	users := r.Group("/users")
	users.Use(authMiddleware.RequireAuth())
	{
		users.GET("", usersHandler.ListUsers)
		users.GET("/:id", usersHandler.GetUserByID)
		users.PUT("/:id", usersHandler.UpdateUser)
		users.DELETE("/:id", usersHandler.DeleteUser)
	}

	return r, repo
}

func request(t *testing.T, r *gin.Engine, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func signIn(t *testing.T, r *gin.Engine, email, password string) *http.Cookie {
	t.Helper()

	w := request(t, r, http.MethodPost, "/auth/sign-in", `{"email": "`+email+`", "password": "`+password+`"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("sign-in failed: status %d, body=%s", w.Code, w.Body.String())
	}

	cookie := tokenCookie(w.Result())

	if cookie == nil || cookie.Value == "" {
		t.Fatal("sign-in did not set a token cookie")
	}

	return cookie
}

func seedAdmin(t *testing.T, repo *memory.UsersRepo) {
	t.Helper()

	hash, err := security.HashPassword("admin-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if _, err := repo.Create(t.Context(), "Admin", "admin@example.com", hash, "admin"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func TestUserPipeline(t *testing.T) {
	r, repo := setupPipeline(t)

	seedAdmin(t, repo)

	// sign up two users
	w := request(t, r, http.MethodPost, "/auth/sign-up", `{"name": "Alice", "email": "alice@example.com", "password": "alice-password"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("alice sign-up: status %d, body=%s", w.Code, w.Body.String())
	}

	w = request(t, r, http.MethodPost, "/auth/sign-up", `{"name": "Bob", "email": "bob@example.com", "password": "bob-password99"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("bob sign-up: status %d, body=%s", w.Code, w.Body.String())
	}

	// admin is id 1, alice id 2, bob id 3
	adminCookie := signIn(t, r, "admin@example.com", "admin-password")
	aliceCookie := signIn(t, r, "alice@example.com", "alice-password")

	// no cookie: 401 everywhere on /users
	w = request(t, r, http.MethodGet, "/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: status %d", w.Code)
	}

	// list shows all three rows and a matching count
	w = request(t, r, http.MethodGet, "/users", "", aliceCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d, body=%s", w.Code, w.Body.String())
	}

	var listResp struct {
		Users []map[string]interface{} `json:"users"`
		Count int                      `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listResp.Count != 3 || len(listResp.Users) != 3 {
		t.Fatalf("count=%d users=%d, want 3/3", listResp.Count, len(listResp.Users))
	}
	for _, u := range listResp.Users {
		if _, leaked := u["password"]; leaked {
			t.Fatal("list leaked a password field")
		}
	}

	// any authenticated user may view any profile
	w = request(t, r, http.MethodGet, "/users/3", "", aliceCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch other profile: status %d, body=%s", w.Code, w.Body.String())
	}

	// alice cannot touch bob
	w = request(t, r, http.MethodPut, "/users/3", `{"name": "Owned"}`, aliceCookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-user update: status %d, want 403", w.Code)
	}

	// alice cannot promote herself
	w = request(t, r, http.MethodPut, "/users/2", `{"name": "Alice", "role": "admin"}`, aliceCookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("self role escalation: status %d, want 403", w.Code)
	}

	// same payload without role succeeds
	w = request(t, r, http.MethodPut, "/users/2", `{"name": "Alice Cooper"}`, aliceCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("self update: status %d, body=%s", w.Code, w.Body.String())
	}

	// admin may promote alice
	w = request(t, r, http.MethodPut, "/users/2", `{"role": "admin"}`, adminCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("admin role change: status %d, body=%s", w.Code, w.Body.String())
	}

	// password update: the new one works afterwards, the old one does not
	w = request(t, r, http.MethodPut, "/users/3", `{"password": "new-bob-password"}`, adminCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("password update: status %d, body=%s", w.Code, w.Body.String())
	}

	w = request(t, r, http.MethodPost, "/auth/sign-in", `{"email": "bob@example.com", "password": "bob-password99"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password still works: status %d", w.Code)
	}

	bobCookie := signIn(t, r, "bob@example.com", "new-bob-password")

	// bob deletes himself; a second delete of the same id is 404
	w = request(t, r, http.MethodDelete, "/users/3", "", bobCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("self delete: status %d, body=%s", w.Code, w.Body.String())
	}

	w = request(t, r, http.MethodDelete, "/users/3", "", adminCookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", w.Code)
	}

	// fetching the removed row is 404, not 500
	w = request(t, r, http.MethodGet, "/users/3", "", adminCookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("fetch deleted: status %d, want 404", w.Code)
	}
}
