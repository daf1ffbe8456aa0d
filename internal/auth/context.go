package auth

import (
	"context"

	"github.com/dukerupert/sipbridge/internal/model"
)

type contextKey struct{}

// TokenContext carries the identity of the access token behind a request.
type TokenContext struct {
	TokenID int64
	Name    string
	Scope   string
}

func WithToken(ctx context.Context, tc TokenContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

func FromContext(ctx context.Context) (TokenContext, bool) {
	tc, ok := ctx.Value(contextKey{}).(TokenContext)
	return tc, ok
}

// HasScope reports whether the request's token covers the required scope.
func HasScope(ctx context.Context, need string) bool {
	tc, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return model.ScopeAllows(tc.Scope, need)
}
