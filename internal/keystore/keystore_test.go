package keystore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/keystore"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

func newStore(t *testing.T) *keystore.Store {
	t.Helper()
	return keystore.New(filepath.Join(t.TempDir(), "keys"))
}

func TestGenerate_StartsWithPendingPrincipal(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, err := store.Generate("password123!")
	require.NoError(t, err)

	assert.Equal(t, keystore.PendingPrincipal, meta.Principal)
	assert.Len(t, meta.PublicKey, 33)
}

func TestUnlock_RoundTripsPrivateKey(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, err := store.Generate("password123!")
	require.NoError(t, err)

	priv, err := store.Unlock(meta.ID, "password123!")
	require.NoError(t, err)
	assert.Len(t, priv, 32)
}

func TestUnlock_WrongPasswordFails(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, err := store.Generate("password123!")
	require.NoError(t, err)

	_, err = store.Unlock(meta.ID, "wrong-password")
	require.Error(t, err)
	assert.Equal(t, apperr.KindWrongPassword, apperr.KindOf(err))
}

func TestUpdatePrincipal_OnlyOnce(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, err := store.Generate("password123!")
	require.NoError(t, err)

	require.NoError(t, store.UpdatePrincipal(meta.ID, "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE.smart-wallet"))

	err = store.UpdatePrincipal(meta.ID, "SP000000000000000000002Q6VF78.other")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestImport_RejectsWrongLength(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, err := store.Import([]byte{1, 2, 3}, "password123!")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestDelete_RemovesKey(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, err := store.Generate("password123!")
	require.NoError(t, err)

	require.NoError(t, store.Delete(meta.ID, "password123!"))

	keys, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDelete_WrongPasswordFails(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, err := store.Generate("password123!")
	require.NoError(t, err)

	err = store.Delete(meta.ID, "wrong-password")
	require.Error(t, err)

	keys, listErr := store.List()
	require.NoError(t, listErr)
	assert.Len(t, keys, 1)
}
