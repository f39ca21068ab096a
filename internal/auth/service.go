package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
	"github.com/odyssey-erp/campus/internal/shared"
)

// ActivityPublisher ships login activity to the audit trail.
type ActivityPublisher interface {
	PublishLoginActivity(ctx context.Context, activity session.LoginActivity) error
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Login validates email/password credentials and returns the principal.
func (s *Service) Login(ctx context.Context, email, password string) (rbac.Principal, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.Principal{}, shared.ErrInvalidCredentials
		}
		return rbac.Principal{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if !user.IsActive {
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	if !rbac.IsValidRole(string(user.Role)) {
		return rbac.Principal{}, fmt.Errorf("auth: user %s has unknown role %q", user.ID, user.Role)
	}
	return user.Principal(), nil
}
