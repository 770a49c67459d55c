package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save_read_delete", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, "boletos/a.pdf", []byte("%PDF"), "application/pdf"))

		ok, err := store.Exists(ctx, "boletos/a.pdf")
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := store.Read(ctx, "boletos/a.pdf")
		require.NoError(t, err)
		assert.Equal(t, "%PDF", string(data))

		require.NoError(t, store.Delete(ctx, "boletos/a.pdf"))
		ok, err = store.Exists(ctx, "boletos/a.pdf")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing_key", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Read(ctx, "boletos/missing.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, store.Delete(ctx, "boletos/missing.pdf"))
	})

	t.Run("rejects_traversal", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		for _, key := range []string{"", "../etc/passwd", "boletos/../../x", "."} {
			_, err := store.Read(ctx, key)
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
		}
	})
}

func TestNewKey(t *testing.T) {
	key := NewKey(PrefixInvoices, "Conta de Luz.PDF")
	assert.True(t, strings.HasPrefix(key, "boletos/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotEqual(t, key, NewKey(PrefixInvoices, "Conta de Luz.PDF"))

	_, err := cleanKey(key)
	assert.NoError(t, err)
}
