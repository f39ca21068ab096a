package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/shared"
)

const sampleDirectory = `
users:
  - id: adm-1
    name: Root Admin
    email: root@campus.local
    password_hash: $2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6.2fWgk8XPq8r6yDkQHqVrW
    role: super-admin
  - id: par-3
    name: Guardian
    email: Parent@Campus.local
    password_hash: $2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6.2fWgk8XPq8r6yDkQHqVrW
    role: parent
    active: false
`

func TestParseDirectory(t *testing.T) {
	repo, err := ParseDirectory(strings.NewReader(sampleDirectory))
	require.NoError(t, err)

	users := repo.Users()
	require.Len(t, users, 2)
	assert.Equal(t, rbac.RoleSuperAdmin, users[0].Role)
	assert.True(t, users[0].IsActive)
	assert.False(t, users[1].IsActive)

	user, err := repo.FindByEmail(context.Background(), " parent@campus.LOCAL ")
	require.NoError(t, err)
	assert.Equal(t, "par-3", user.ID)

	_, err = repo.FindByEmail(context.Background(), "nobody@campus.local")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestParseDirectoryRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"unknown role": `
users:
  - {id: u1, name: A, email: a@x.io, password_hash: $2a$10$abc, role: janitor}`,
		"bad email": `
users:
  - {id: u1, name: A, email: nope, password_hash: $2a$10$abc, role: staff}`,
		"plaintext password": `
users:
  - {id: u1, name: A, email: a@x.io, password_hash: hunter22, role: staff}`,
		"duplicate email": `
users:
  - {id: u1, name: A, email: a@x.io, password_hash: $2a$10$abc, role: staff}
  - {id: u2, name: B, email: A@x.io, password_hash: $2a$10$abc, role: staff}`,
		"duplicate id": `
users:
  - {id: u1, name: A, email: a@x.io, password_hash: $2a$10$abc, role: staff}
  - {id: u1, name: B, email: b@x.io, password_hash: $2a$10$abc, role: staff}`,
		"unknown field": `
users:
  - {id: u1, name: A, email: a@x.io, password_hash: $2a$10$abc, role: staff, admin: true}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDirectory(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmptyDirectory(t *testing.T) {
	repo, err := ParseDirectory(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, repo.Users())
}
