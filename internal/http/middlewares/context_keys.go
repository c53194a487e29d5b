package middlewares

import (
	"context"

	"github.com/geocoder89/userhub/internal/domain/user"
)

type ctxKey string

const (
	// gin context keys
	CtxIdentity  = "auth.identity"
	CtxRequestID = "request_id"

	// request-context key; the identity is threaded through the standard
	// context so non-gin code never touches gin.
	keyIdentity ctxKey = "identity"
)

func WithIdentity(ctx context.Context, ident user.Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, ident)
}

func IdentityFrom(ctx context.Context) (user.Identity, bool) {
	ident, ok := ctx.Value(keyIdentity).(user.Identity)

	return ident, ok && ident.ID > 0
}
