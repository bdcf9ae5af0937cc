package schnorrsign_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/schnorrsign"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

func testTaprootKey(t *testing.T) *keyderiv.TaprootKey {
	t.Helper()
	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")

	id, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)
	return id.Taproot
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	key := testTaprootKey(t)
	digest := sha256.Sum256([]byte("sign this digest"))

	sig, err := schnorrsign.Sign(digest, key.PrivateKey)
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	ok, err := schnorrsign.Verify(digest, sig, key.XOnlyPub)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_WrongDigestFails(t *testing.T) {
	t.Parallel()

	key := testTaprootKey(t)
	digest := sha256.Sum256([]byte("original"))
	other := sha256.Sum256([]byte("tampered"))

	sig, err := schnorrsign.Sign(digest, key.PrivateKey)
	require.NoError(t, err)

	ok, err := schnorrsign.Verify(other, sig, key.XOnlyPub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignBlind_RequiresReview(t *testing.T) {
	t.Parallel()

	key := testTaprootKey(t)
	digest := sha256.Sum256([]byte("opaque agent digest"))

	_, err := schnorrsign.SignBlind(schnorrsign.Request{Digest: digest, Reviewed: false}, key.PrivateKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrBlindSignNotConfirmed)

	sig, err := schnorrsign.SignBlind(schnorrsign.Request{Digest: digest, Reviewed: true}, key.PrivateKey)
	require.NoError(t, err)
	assert.Len(t, sig, 64)
}

func TestSign_RejectsWrongKeyLength(t *testing.T) {
	t.Parallel()

	digest := sha256.Sum256([]byte("x"))
	_, err := schnorrsign.Sign(digest, []byte{1, 2, 3})
	require.ErrorIs(t, err, schnorrsign.ErrInvalidPrivateKey)
}

func TestVerify_RejectsWrongPubKeyLength(t *testing.T) {
	t.Parallel()

	digest := sha256.Sum256([]byte("x"))
	_, err := schnorrsign.Verify(digest, make([]byte, 64), []byte{1, 2})
	require.ErrorIs(t, err, schnorrsign.ErrInvalidPubKey)
}
