package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"github.com/odyssey-erp/campus/internal/session"
)

const (
	// CSRFStorageKey is the key used to persist tokens in the scope storage.
	CSRFStorageKey = "erp_csrf_token"
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf_token"
	// CSRFHeader carries the token for fetch based requests.
	CSRFHeader = "X-CSRF-Token"
)

// CSRFManager issues and verifies CSRF tokens bound to a storage scope.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager using the provided secret key.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken retrieves or generates a CSRF token for the scope.
func (m *CSRFManager) EnsureToken(ctx context.Context, scope *RequestScope) (string, error) {
	if scope == nil {
		return "", ErrScopeMissing
	}
	token, err := scope.Storage.Get(ctx, CSRFStorageKey)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, session.ErrNoValue) {
		return "", err
	}
	token = m.generateToken(scope.ID)
	if err := scope.Storage.Set(ctx, CSRFStorageKey, token); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyToken compares the supplied token with the scope token.
func (m *CSRFManager) VerifyToken(ctx context.Context, scope *RequestScope, token string) error {
	if scope == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	expected, err := scope.Storage.Get(ctx, CSRFStorageKey)
	if err != nil || expected == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) generateToken(scopeID string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(scopeID))
	_, _ = mac.Write([]byte{'|'})
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(time.Now().UnixNano()))
	_, _ = mac.Write(buf)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
