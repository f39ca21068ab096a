package shared

import (
	"context"

	"github.com/odyssey-erp/campus/internal/session"
)

// RequestScope is the storage scope bound to the current request.
type RequestScope struct {
	ID      string
	Store   *session.Store
	Storage session.Storage
}

type scopeContextKey struct{}

// ContextWithScope stores the request scope in context.
func ContextWithScope(ctx context.Context, scope *RequestScope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the request scope from context.
func ScopeFromContext(ctx context.Context) *RequestScope {
	scope, _ := ctx.Value(scopeContextKey{}).(*RequestScope)
	return scope
}
