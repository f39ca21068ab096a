package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/session"
)

func newScope(id string) *RequestScope {
	storage := session.NewMemoryBackend().Storage(id)
	return &RequestScope{ID: id, Storage: storage, Store: session.NewStore(storage, session.Options{})}
}

func TestCSRFTokenIsStableWithinScope(t *testing.T) {
	ctx := context.Background()
	csrf := NewCSRFManager("secret")
	scope := newScope("7b5c")

	first, err := csrf.EnsureToken(ctx, scope)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := csrf.EnsureToken(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, csrf.VerifyToken(ctx, scope, first))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, scope, first+"x"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, scope, ""), ErrCSRFTokenMissing)
}

func TestCSRFWithoutScope(t *testing.T) {
	ctx := context.Background()
	csrf := NewCSRFManager("secret")

	_, err := csrf.EnsureToken(ctx, nil)
	assert.ErrorIs(t, err, ErrScopeMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, nil, "abc"), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, newScope("fresh"), "abc"), ErrCSRFTokenMissing)
}
