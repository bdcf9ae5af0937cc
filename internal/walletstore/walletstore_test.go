package walletstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/walletstore"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

func newStore(t *testing.T) *walletstore.Store {
	t.Helper()
	return walletstore.New(filepath.Join(t.TempDir(), "wallets"))
}

func TestCreate_ReturnsMnemonicOnce(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, mnemonic, err := store.Create("agent-primary", "correct horse battery staple", netparams.Mainnet)
	require.NoError(t, err)

	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "agent-primary", meta.Name)
	assert.NotEmpty(t, mnemonic)
	assert.Equal(t, "S", string(meta.StacksAddress[0]))
}

func TestImport_RejectsInvalidMnemonic(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, err := store.Import("agent-two", "not a real mnemonic phrase at all", "password123!", netparams.Mainnet)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestList_ReturnsCreatedWallets(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, _, err := store.Create("a", "password123!", netparams.Mainnet)
	require.NoError(t, err)
	_, _, err = store.Create("b", "password123!", netparams.Mainnet)
	require.NoError(t, err)

	wallets, err := store.List()
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
}

func TestGetActiveID_DefaultsToFirstCreated(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, _, err := store.Create("a", "password123!", netparams.Mainnet)
	require.NoError(t, err)

	activeID, ok, err := store.GetActiveID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, meta.ID, activeID)
}

func TestSwitchActive_MovesPointer(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, _, err := store.Create("a", "password123!", netparams.Mainnet)
	require.NoError(t, err)
	metaB, _, err := store.Create("b", "password123!", netparams.Mainnet)
	require.NoError(t, err)

	require.NoError(t, store.SwitchActive(metaB.ID))

	activeID, ok, err := store.GetActiveID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, metaB.ID, activeID)
}

func TestExportMnemonic_WrongPasswordFails(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, _, err := store.Create("a", "correct-password", netparams.Mainnet)
	require.NoError(t, err)

	_, err = store.ExportMnemonic(meta.ID, "wrong-password")
	require.Error(t, err)
	assert.Equal(t, apperr.KindWrongPassword, apperr.KindOf(err))
}

func TestExportMnemonic_RoundTripsOriginalSeed(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, mnemonic, err := store.Create("a", "correct-password", netparams.Mainnet)
	require.NoError(t, err)

	exported, err := store.ExportMnemonic(meta.ID, "correct-password")
	require.NoError(t, err)
	assert.Equal(t, mnemonic, exported)
}

func TestRotatePassword_OldPasswordRejectedAfterRotation(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, _, err := store.Create("a", "old-password", netparams.Mainnet)
	require.NoError(t, err)

	require.NoError(t, store.RotatePassword(meta.ID, "old-password", "new-password"))

	_, err = store.ExportMnemonic(meta.ID, "old-password")
	require.Error(t, err)

	_, err = store.ExportMnemonic(meta.ID, "new-password")
	require.NoError(t, err)
}

func TestRotatePassword_WrongOldPasswordLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, _, err := store.Create("a", "old-password", netparams.Mainnet)
	require.NoError(t, err)

	err = store.RotatePassword(meta.ID, "wrong-old-password", "new-password")
	require.Error(t, err)

	_, err = store.ExportMnemonic(meta.ID, "old-password")
	require.NoError(t, err)
}

func TestDelete_RemovesWalletAndReassignsActive(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	metaA, _, err := store.Create("a", "password123!", netparams.Mainnet)
	require.NoError(t, err)
	metaB, _, err := store.Create("b", "password123!", netparams.Mainnet)
	require.NoError(t, err)

	require.NoError(t, store.Delete(metaA.ID, "password123!"))

	wallets, err := store.List()
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
	assert.Equal(t, metaB.ID, wallets[0].ID)

	activeID, ok, err := store.GetActiveID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, metaB.ID, activeID)
}

func TestDelete_WrongPasswordFails(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	meta, _, err := store.Create("a", "password123!", netparams.Mainnet)
	require.NoError(t, err)

	err = store.Delete(meta.ID, "wrong-password")
	require.Error(t, err)

	wallets, listErr := store.List()
	require.NoError(t, listErr)
	assert.Len(t, wallets, 1)
}
