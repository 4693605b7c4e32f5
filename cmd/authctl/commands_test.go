package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/password"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	repo := user.NewMemoryRepository()
	hasher := password.NewMultiHasher(password.NewBcryptHasher(4))

	u, err := createUser(ctx, repo, hasher, 8, credentials{Email: "Admin@Example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)

	ok, err := hasher.Verify("long-enough", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = createUser(ctx, repo, hasher, 8, credentials{Email: "admin@example.com", Password: "long-enough"})
	assert.ErrorContains(t, err, "already exists")
}

func TestCreateUser_Rejects(t *testing.T) {
	ctx := context.Background()
	repo := user.NewMemoryRepository()
	hasher := password.NewMultiHasher(password.NewBcryptHasher(4))

	_, err := createUser(ctx, repo, hasher, 8, credentials{Email: "not-an-email", Password: "long-enough"})
	assert.Error(t, err)

	_, err = createUser(ctx, repo, hasher, 8, credentials{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, password.ErrTooShort)

	_, err = repo.GetByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSetPassword(t *testing.T) {
	ctx := context.Background()
	repo := user.NewMemoryRepository()
	hasher := password.NewMultiHasher(password.NewBcryptHasher(4))

	created, err := createUser(ctx, repo, hasher, 8, credentials{Email: "ops@example.com", Password: "first-password"})
	require.NoError(t, err)

	_, err = setPassword(ctx, repo, hasher, 8, credentials{Email: "OPS@example.com", Password: "second-password"})
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	ok, err := hasher.Verify("second-password", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = setPassword(ctx, repo, hasher, 8, credentials{Email: "ghost@example.com", Password: "second-password"})
	assert.ErrorContains(t, err, "no user")
}

func TestHashCommand(t *testing.T) {
	tests := []struct {
		algo   string
		prefix string
	}{
		{"bcrypt", "$2a$04$"},
		{"argon2id", "$argon2id$"},
	}
	for _, tt := range tests {
		t.Run(tt.algo, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"hash", "--password", "s3cret-pass", "--algo", tt.algo, "--cost", "4"})

			require.NoError(t, cmd.Execute())

			hash := strings.TrimSpace(out.String())
			assert.True(t, strings.HasPrefix(hash, tt.prefix), hash)

			hasher, err := password.New(tt.algo, 4)
			require.NoError(t, err)
			ok, err := hasher.Verify("s3cret-pass", hash)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestHashCommand_UnknownAlgo(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"hash", "--password", "x", "--algo", "md5"})

	assert.Error(t, cmd.Execute())
}
