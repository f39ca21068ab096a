package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/shared"
)

// DirectoryEntry is one account in a YAML user directory.
type DirectoryEntry struct {
	ID            string `yaml:"id" validate:"required"`
	Name          string `yaml:"name" validate:"required"`
	Email         string `yaml:"email" validate:"required,email"`
	PasswordHash  string `yaml:"password_hash" validate:"required,startswith=$2"`
	Role          string `yaml:"role" validate:"required,campusrole"`
	InstitutionID string `yaml:"institution_id,omitempty"`
	ProgramID     string `yaml:"program_id,omitempty"`
	Active        *bool  `yaml:"active,omitempty"`
}

type directoryFile struct {
	Users []DirectoryEntry `yaml:"users" validate:"dive"`
}

// DirectoryRepository serves users from a YAML directory held in memory. It
// is immutable once parsed.
type DirectoryRepository struct {
	byEmail map[string]User
	users   []User
}

// LoadDirectory reads and validates the directory file at path.
func LoadDirectory(path string) (*DirectoryRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auth: open directory: %w", err)
	}
	defer f.Close()
	return ParseDirectory(f)
}

// ParseDirectory decodes and validates a directory document.
func ParseDirectory(r io.Reader) (*DirectoryRepository, error) {
	var doc directoryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("auth: decode directory: %w", err)
	}

	validate := validator.New()
	if err := validate.RegisterValidation("campusrole", func(fl validator.FieldLevel) bool {
		return rbac.IsValidRole(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("auth: invalid directory: %w", err)
	}

	repo := &DirectoryRepository{byEmail: make(map[string]User, len(doc.Users))}
	ids := make(map[string]struct{}, len(doc.Users))
	for _, entry := range doc.Users {
		key := normalizeEmail(entry.Email)
		if _, dup := repo.byEmail[key]; dup {
			return nil, fmt.Errorf("auth: duplicate directory email %s", entry.Email)
		}
		if _, dup := ids[entry.ID]; dup {
			return nil, fmt.Errorf("auth: duplicate directory id %s", entry.ID)
		}
		ids[entry.ID] = struct{}{}
		active := entry.Active == nil || *entry.Active
		user := User{
			ID:            entry.ID,
			Name:          entry.Name,
			Email:         entry.Email,
			PasswordHash:  entry.PasswordHash,
			Role:          rbac.Role(entry.Role),
			InstitutionID: entry.InstitutionID,
			ProgramID:     entry.ProgramID,
			IsActive:      active,
		}
		repo.byEmail[key] = user
		repo.users = append(repo.users, user)
	}
	return repo, nil
}

// FindByEmail looks up a user case-insensitively.
func (d *DirectoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

// Users returns the directory in file order.
func (d *DirectoryRepository) Users() []User {
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Repository = (*DirectoryRepository)(nil)
