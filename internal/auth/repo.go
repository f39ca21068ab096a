package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/campus/internal/platform/db"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/shared"
)

// Repository defines lookups the auth service needs.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUserByEmail = `
SELECT id, name, email, password_hash, role, institution_id, program_id, is_active, created_at, updated_at
FROM users
WHERE lower(email) = lower($1)`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var (
		user User
		role string
	)
	err := r.pool.QueryRow(ctx, selectUserByEmail, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.InstitutionID,
		&user.ProgramID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	user.Role = rbac.Role(role)
	return &user, nil
}

const upsertUser = `
INSERT INTO users (id, name, email, password_hash, role, institution_id, program_id, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	email = EXCLUDED.email,
	password_hash = EXCLUDED.password_hash,
	role = EXCLUDED.role,
	institution_id = EXCLUDED.institution_id,
	program_id = EXCLUDED.program_id,
	is_active = EXCLUDED.is_active,
	updated_at = NOW()`

// UpsertUsers writes users in a single transaction.
func (r *PGRepository) UpsertUsers(ctx context.Context, users []User) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range users {
			batch.Queue(upsertUser, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.InstitutionID, u.ProgramID, u.IsActive)
		}
		results := tx.SendBatch(ctx, batch)
		for i := range users {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("auth: upsert user %s: %w", users[i].ID, err)
			}
		}
		return results.Close()
	})
}

var _ Repository = (*PGRepository)(nil)
