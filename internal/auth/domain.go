package auth

import (
	"time"

	"github.com/odyssey-erp/campus/internal/rbac"
)

// User represents an account in the user directory.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          rbac.Role
	InstitutionID string
	ProgramID     string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Principal projects the account onto the authenticated principal. Session
// metadata is filled in when the session is stored.
func (u *User) Principal() rbac.Principal {
	return rbac.Principal{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		InstitutionID: u.InstitutionID,
		ProgramID:     u.ProgramID,
	}
}
