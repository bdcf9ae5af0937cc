package stackstx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/clarity"
	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/stackstx"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")
	id, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)
	return id.Stacks.PrivateKey
}

func TestNewTokenTransfer_SignOrigin_ProducesSignature(t *testing.T) {
	t.Parallel()

	priv := testKey(t)
	recipient := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: make([]byte, 20)}

	tx, err := stackstx.NewTokenTransfer(stackstx.VersionMainnet, 1, 42, recipient, 1_000_000, "x402")
	require.NoError(t, err)

	require.NoError(t, tx.SignOrigin(priv))
	assert.NotEqual(t, [65]byte{}, tx.Origin.Signature)
	assert.NotEqual(t, [20]byte{}, tx.Origin.Signer)

	serialized := tx.Serialize()
	assert.NotEmpty(t, serialized)
}

func TestNewTokenTransfer_RejectsOversizedMemo(t *testing.T) {
	t.Parallel()

	recipient := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: make([]byte, 20)}
	longMemo := make([]byte, 40)

	_, err := stackstx.NewTokenTransfer(stackstx.VersionMainnet, 1, 0, recipient, 1, string(longMemo))
	require.ErrorIs(t, err, stackstx.ErrMemoTooLong)
}

func TestNewContractCall_SignOrigin_ProducesSignature(t *testing.T) {
	t.Parallel()

	priv := testKey(t)
	contract := clarity.Principal{
		Version:      netparams.Mainnet.C32Version(),
		Hash160:      make([]byte, 20),
		ContractName: "sbtc-token",
	}

	tx, err := stackstx.NewContractCall(stackstx.VersionMainnet, 1, 7, contract, "transfer", []clarity.Value{
		clarity.UInt128(1000),
	})
	require.NoError(t, err)

	require.NoError(t, tx.SignOrigin(priv))
	assert.NotEqual(t, [65]byte{}, tx.Origin.Signature)
}

func TestNewSBTCTransfer_SetsDenyModeWithEqualityPostCondition(t *testing.T) {
	t.Parallel()

	priv := testKey(t)
	contract := clarity.Principal{
		Version:      netparams.Mainnet.C32Version(),
		Hash160:      make([]byte, 20),
		ContractName: "sbtc-token",
	}
	sender := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: bytesOf(1)}
	recipient := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: bytesOf(2)}

	tx, err := stackstx.NewSBTCTransfer(stackstx.VersionMainnet, 1, 9, contract, sender, recipient, 5_000)
	require.NoError(t, err)

	assert.Equal(t, byte(stackstx.PostConditionModeDeny), tx.PostConditionMode)
	require.Len(t, tx.PostConditions, 1)

	pc := tx.PostConditions[0]
	assert.Equal(t, sender, pc.Principal)
	assert.Equal(t, contract, pc.AssetContract)
	assert.Equal(t, "sbtc-token", pc.AssetName)
	assert.Equal(t, stackstx.FungibleConditionEqual, pc.Code)
	assert.Equal(t, uint64(5_000), pc.Amount)

	require.NoError(t, tx.SignOrigin(priv))
	serialized := tx.Serialize()
	assert.NotEmpty(t, serialized)
}

func TestNewSBTCTransfer_SerializesOnePostCondition(t *testing.T) {
	t.Parallel()

	contract := clarity.Principal{
		Version:      netparams.Mainnet.C32Version(),
		Hash160:      make([]byte, 20),
		ContractName: "sbtc-token",
	}
	sender := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: bytesOf(1)}
	recipient := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: bytesOf(2)}

	denyTx, err := stackstx.NewSBTCTransfer(stackstx.VersionMainnet, 1, 0, contract, sender, recipient, 1)
	require.NoError(t, err)

	allowTx, err := stackstx.NewTokenTransfer(stackstx.VersionMainnet, 1, 0, recipient, 1, "")
	require.NoError(t, err)

	// The sBTC leg's unsigned payload must carry its post-condition and be
	// strictly longer than an equivalent transfer with none, confirming the
	// post-conditions list is no longer a hardcoded no-op.
	priv := testKey(t)
	require.NoError(t, denyTx.SignOrigin(priv))
	require.NoError(t, allowTx.SignOrigin(priv))
	assert.Greater(t, len(denyTx.Serialize()), len(allowTx.Serialize()))
}

func bytesOf(b byte) []byte {
	out := make([]byte, 20)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestSignOrigin_RejectsWrongKeyLength(t *testing.T) {
	t.Parallel()

	recipient := clarity.Principal{Version: netparams.Mainnet.C32Version(), Hash160: make([]byte, 20)}
	tx, err := stackstx.NewTokenTransfer(stackstx.VersionMainnet, 1, 0, recipient, 1, "")
	require.NoError(t, err)

	err = tx.SignOrigin([]byte{1, 2, 3})
	require.ErrorIs(t, err, stackstx.ErrInvalidPrivateKey)
}
