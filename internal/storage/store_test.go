package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Alias1177/FraudShield/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a", "1"))
	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, m.Delete(ctx, "a"))
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestScopedStoreIsolatesKeys(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	alice := Scoped(base, "chat:1")
	bob := Scoped(base, "chat:2")

	require.NoError(t, alice.Set(ctx, "fraudShieldTheme", "dark"))

	_, ok, err := bob.Get(ctx, "fraudShieldTheme")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, _ := base.Get(ctx, "chat:1:fraudShieldTheme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, alice.Close())
	require.NoError(t, base.Set(ctx, "still", "open"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{StorageDriver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, &config.Config{StorageDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "fs.db")})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	_, err = Open(ctx, &config.Config{StorageDriver: "floppy"})
	assert.Error(t, err)
}
