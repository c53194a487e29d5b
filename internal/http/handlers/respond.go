package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FieldError is one entry of a validation failure's details list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondValidationFailed(ctx *gin.Context, details []FieldError) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   "Validation Failed",
		"details": details,
	})
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": message,
	})
}

func RespondForbidden(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusForbidden, gin.H{
		"error":   "Forbidden",
		"message": message,
	})
}

func RespondNotFound(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusNotFound, gin.H{
		"error": message,
	})
}

func RespondInternal(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"error":      message,
		"request_id": requestIDFrom(ctx),
	})
}
