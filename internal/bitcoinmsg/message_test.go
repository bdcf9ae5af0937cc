package bitcoinmsg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/bitcoinmsg"
	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
)

func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")

	id, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)
	return id.Bitcoin.PrivateKey
}

func TestSignRecover_RoundTrip(t *testing.T) {
	t.Parallel()

	priv := testPrivateKey(t)
	message := []byte("reserve 0.01 BTC for agent task #42")

	sig, err := bitcoinmsg.Sign(message, priv, bitcoinmsg.AddressSegwitBech32)
	require.NoError(t, err)

	pubKey, addrType, err := bitcoinmsg.Recover(message, sig)
	require.NoError(t, err)

	assert.Len(t, pubKey, 33)
	assert.Equal(t, bitcoinmsg.AddressSegwitBech32, addrType)
}

func TestRecover_TamperedMessageFails(t *testing.T) {
	t.Parallel()

	priv := testPrivateKey(t)
	sig, err := bitcoinmsg.Sign([]byte("original"), priv, bitcoinmsg.AddressP2PKHCompressed)
	require.NoError(t, err)

	pubKeyOriginal, _, err := bitcoinmsg.Recover([]byte("original"), sig)
	require.NoError(t, err)

	pubKeyTampered, _, err := bitcoinmsg.Recover([]byte("tampered"), sig)
	require.NoError(t, err)

	assert.NotEqual(t, pubKeyOriginal, pubKeyTampered)
}

func TestSign_RejectsShortPrivateKey(t *testing.T) {
	t.Parallel()

	_, err := bitcoinmsg.Sign([]byte("hi"), []byte{1, 2, 3}, bitcoinmsg.AddressP2PKHCompressed)
	require.ErrorIs(t, err, bitcoinmsg.ErrInvalidPrivateKey)
}

func TestRecover_RejectsShortSignature(t *testing.T) {
	t.Parallel()

	_, _, err := bitcoinmsg.Recover([]byte("hi"), "AA==")
	require.ErrorIs(t, err, bitcoinmsg.ErrInvalidSignature)
}

func TestVerify_MatchesExpectedAddress(t *testing.T) {
	t.Parallel()

	priv := testPrivateKey(t)
	message := []byte("bind agent session")
	sig, signErr := bitcoinmsg.Sign(message, priv, bitcoinmsg.AddressSegwitBech32)
	require.NoError(t, signErr)

	pubKey, addrType, recoverErr := bitcoinmsg.Recover(message, sig)
	require.NoError(t, recoverErr)

	expectedAddress, addrErr := bitcoinmsg.AddressForType(pubKey, addrType, netparams.Mainnet)
	require.NoError(t, addrErr)

	address, match, verifyErr := bitcoinmsg.Verify(message, sig, expectedAddress, netparams.Mainnet)
	require.NoError(t, verifyErr)
	assert.True(t, match)
	assert.Equal(t, expectedAddress, address)

	_, mismatch, mismatchErr := bitcoinmsg.Verify(message, sig, "bc1qnotarealaddress000000000000000000000", netparams.Mainnet)
	require.NoError(t, mismatchErr)
	assert.False(t, mismatch)
}

func TestDigest_Deterministic(t *testing.T) {
	t.Parallel()

	a := bitcoinmsg.Digest([]byte("hello"))
	b := bitcoinmsg.Digest([]byte("hello"))
	assert.Equal(t, a, b)

	c := bitcoinmsg.Digest([]byte("hello!"))
	assert.NotEqual(t, a, c)
}
