package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/policy"
	"github.com/geocoder89/userhub/internal/security"
)

type UsersStore interface {
	ListAll(ctx context.Context) ([]user.Public, error)
	GetByID(ctx context.Context, id int64) (user.Public, error)
	Update(ctx context.Context, id int64, req user.UpdateUserRequest) (user.Public, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	store  UsersStore
	policy *policy.Evaluator
}

func NewUsersHandler(store UsersStore, evaluator *policy.Evaluator) *UsersHandler {
	return &UsersHandler{store: store, policy: evaluator}
}

// parseUserID validates the :id path parameter. A malformed id is a
// validation failure, not a lookup miss.
func parseUserID(ctx *gin.Context) (int64, bool) {
	raw := ctx.Param("id")

	id, err := strconv.ParseInt(raw, 10, 64)

	if err != nil || id <= 0 {
		RespondValidationFailed(ctx, []FieldError{
			{Field: "id", Message: "must be a positive integer"},
		})
		return 0, false
	}

	return id, true
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	users, err := h.store.ListAll(ctx.Request.Context())

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "list users failed", "err", err)
		RespondInternal(ctx, "Could not retrieve users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Successfully retrieved users",
		"users":   users,
		"count":   len(users),
	})
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	// No owner check on plain fetch: any authenticated user may view any
	// profile. Intentional today, flagged for product review.
	u, err := h.store.GetByID(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "get user failed", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not retrieve user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Successfully retrieved user",
		"user":    u,
	})
}

// UpdateUser runs the mutation pipeline in fixed order: path validation,
// body validation, ownership check, role-change check, password hashing,
// then the store call. Each stage short-circuits; side effects happen at
// most once.
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Empty() {
		RespondValidationFailed(ctx, []FieldError{
			{Field: "body", Message: "at least one field must be provided"},
		})
		return
	}

	actor, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "No access token provided")
		return
	}

	err := h.policy.Evaluate(policy.Input{
		Actor:    actor,
		Action:   policy.ActionUpdate,
		TargetID: id,
	})

	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	// The role gate runs after the ownership rule: a non-owning
	// non-admin is rejected before escalation is even considered.
	if req.Role != nil {
		err = h.policy.Evaluate(policy.Input{
			Actor:    actor,
			Action:   policy.ActionChangeRole,
			TargetID: id,
		})

		if err != nil {
			respondPolicyError(ctx, err)
			return
		}
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			slog.Default().ErrorContext(ctx.Request.Context(), "password hashing failed", "err", err)
			RespondInternal(ctx, "Could not update user")
			return
		}

		req.Password = &hash
	}

	updated, err := h.store.Update(ctx.Request.Context(), id, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondValidationFailed(ctx, []FieldError{
				{Field: "email", Message: "is already in use"},
			})
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "update user failed", "err", err, "user_id", id)
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    updated,
	})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	actor, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "No access token provided")
		return
	}

	err := h.policy.Evaluate(policy.Input{
		Actor:    actor,
		Action:   policy.ActionDelete,
		TargetID: id,
	})

	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	err = h.store.Delete(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "delete user failed", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}

func respondPolicyError(ctx *gin.Context, err error) {
	var denied *policy.DeniedError

	if errors.As(err, &denied) {
		RespondForbidden(ctx, denied.Message)
		return
	}

	RespondInternal(ctx, "Could not authorize request")
}
