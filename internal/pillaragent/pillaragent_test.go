package pillaragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/pillaragent"
)

func testSigningKey(t *testing.T) []byte {
	t.Helper()
	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")
	id, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)
	return id.Stacks.PrivateKey
}

func TestSign_ProducesRecoverablePubKey(t *testing.T) {
	t.Parallel()

	priv := testSigningKey(t)
	signer := pillaragent.NewSigner("SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE.smart-wallet", netparams.Mainnet)

	sig, err := signer.Sign(pillaragent.BoostRequest{
		SBTCAmount:      100_000,
		AeUSDCToBorrow:  5_000_000,
		MinSBTCFromSwap: 95_000,
	}, priv)
	require.NoError(t, err)

	assert.Len(t, sig.PubKey, 33)
	assert.NotZero(t, sig.AuthID)
}

func TestSign_AuthIDsAreMonotonic(t *testing.T) {
	t.Parallel()

	priv := testSigningKey(t)
	signer := pillaragent.NewSigner("SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE.smart-wallet", netparams.Mainnet)

	req := pillaragent.BoostRequest{SBTCAmount: 1, AeUSDCToBorrow: 1, MinSBTCFromSwap: 1}

	sigA, err := signer.Sign(req, priv)
	require.NoError(t, err)
	sigB, err := signer.Sign(req, priv)
	require.NoError(t, err)

	assert.Less(t, sigA.AuthID, sigB.AuthID)
}

func TestSign_DifferentSignersDisagreeOnChainID(t *testing.T) {
	t.Parallel()

	priv := testSigningKey(t)
	mainnetSigner := pillaragent.NewSigner("SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE.smart-wallet", netparams.Mainnet)
	testnetSigner := pillaragent.NewSigner("SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE.smart-wallet", netparams.Testnet)

	req := pillaragent.BoostRequest{SBTCAmount: 1, AeUSDCToBorrow: 1, MinSBTCFromSwap: 1}

	sigA, err := mainnetSigner.Sign(req, priv)
	require.NoError(t, err)
	sigB, err := testnetSigner.Sign(req, priv)
	require.NoError(t, err)

	assert.NotEqual(t, sigA.Signature, sigB.Signature)
}
