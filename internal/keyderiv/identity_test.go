package keyderiv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
)

func TestDeriveIdentity_Deterministic(t *testing.T) {
	t.Parallel()

	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")

	id1, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)

	id2, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)

	assert.Equal(t, id1.Stacks.Address, id2.Stacks.Address)
	assert.Equal(t, id1.Bitcoin.Address, id2.Bitcoin.Address)
	assert.Equal(t, id1.Taproot.Address, id2.Taproot.Address)
}

func TestDeriveIdentity_DistinctAddressesPerNetwork(t *testing.T) {
	t.Parallel()

	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")

	mainnet, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)

	testnet, err := keyderiv.DeriveIdentity(seed, netparams.Testnet)
	require.NoError(t, err)

	assert.NotEqual(t, mainnet.Stacks.Address, testnet.Stacks.Address)
	assert.NotEqual(t, mainnet.Bitcoin.Address, testnet.Bitcoin.Address)
}

func TestDeriveIdentity_AddressesLookValid(t *testing.T) {
	t.Parallel()

	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")

	id, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)

	assert.Equal(t, "S", string(id.Stacks.Address[0]))
	assert.Equal(t, "bc1", id.Bitcoin.Address[:3])
	assert.Equal(t, "bc1p", id.Taproot.Address[:4])
	assert.Len(t, id.Stacks.PrivateKey, 32)
	assert.Len(t, id.Bitcoin.PrivateKey, 32)
	assert.Len(t, id.Taproot.PrivateKey, 32)
	assert.Len(t, id.Taproot.XOnlyPub, 32)
}
