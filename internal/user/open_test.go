package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/config"
)

func TestOpenStore_Memory(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, config.DatabaseConfig{Driver: config.DriverMemory}, true)
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close(ctx)) }()

	u, err := store.Create(ctx, "Seed@Example.com", "hash")
	require.NoError(t, err)

	got, err := store.GetByEmail(ctx, "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, false)
	assert.Error(t, err)
}
