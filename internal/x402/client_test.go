package x402_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/stacksapi"
	"github.com/aibtc/wallet-core/internal/x402"
)

type fakeSigner struct {
	priv    []byte
	address string
}

func (s *fakeSigner) PrivateKey() []byte   { return s.priv }
func (s *fakeSigner) StacksAddress() string { return s.address }

func testSigner(t *testing.T) *fakeSigner {
	t.Helper()
	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount12)
	require.NoError(t, err)
	seed := keyderiv.MnemonicToSeed(mnemonic, "")
	id, err := keyderiv.DeriveIdentity(seed, netparams.Mainnet)
	require.NoError(t, err)
	return &fakeSigner{priv: id.Stacks.PrivateKey, address: id.Stacks.Address}
}

func stacksAPIStub(t *testing.T) *stacksapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/fees/transaction":
			_, _ = w.Write([]byte(`{"estimations":[{"fee_rate":1,"fee":1000},{"fee_rate":1,"fee":800},{"fee_rate":1,"fee":500}]}`))
		default:
			_, _ = w.Write([]byte(`{"stx":{"balance":"100000000"},"fungible_tokens":{}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return stacksapi.New(srv.URL)
}

func TestDo_SuccessWithoutPayment(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := x402.New(nil, stacksAPIStub(t), "stacks:mainnet", netparams.StacksChainIDMainnet, 0)
	defer client.Close()

	result, err := client.Do(context.Background(), x402.Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Empty(t, result.TxID)
}

func TestDo_PaysOn402AndRetriesOnce(t *testing.T) {
	t.Parallel()

	signer := testSigner(t)
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			envelope := map[string]any{
				"accepts": []map[string]any{
					{"network": "stacks:mainnet", "asset": "sbtc", "amount": "1000", "payTo": signer.address},
				},
				"resource":    "/paid",
				"x402Version": 1,
			}
			encoded, _ := json.Marshal(envelope)
			w.Header().Set(x402.HeaderPaymentRequired, base64.RawURLEncoding.EncodeToString(encoded))
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		assert.NotEmpty(t, r.Header.Get(x402.HeaderPayment))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := x402.New(nil, stacksAPIStub(t), "stacks:mainnet", netparams.StacksChainIDMainnet, 0)
	defer client.Close()

	result, err := client.Do(context.Background(), x402.Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Signer: signer,
		Nonce:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.True(t, result.Retried)
	assert.NotEmpty(t, result.TxID)
	assert.Equal(t, 2, calls)
}

func TestDo_SecondConsecutive402FailsRetryExceeded(t *testing.T) {
	t.Parallel()

	signer := testSigner(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope := map[string]any{
			"accepts": []map[string]any{
				{"network": "stacks:mainnet", "asset": "sbtc", "amount": "1000", "payTo": signer.address},
			},
			"resource":    "/paid",
			"x402Version": 1,
		}
		encoded, _ := json.Marshal(envelope)
		w.Header().Set(x402.HeaderPaymentRequired, base64.RawURLEncoding.EncodeToString(encoded))
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := x402.New(nil, stacksAPIStub(t), "stacks:mainnet", netparams.StacksChainIDMainnet, 0)
	defer client.Close()

	_, err := client.Do(context.Background(), x402.Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Signer: signer,
		Nonce:  1,
	})
	require.ErrorIs(t, err, x402.ErrRetryExceeded)
}

func TestDo_NoStacksOptionFailsTokenUnsupported(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope := map[string]any{
			"accepts":     []map[string]any{{"network": "ethereum:mainnet", "asset": "usdc", "amount": "1", "payTo": "0xabc"}},
			"resource":    "/paid",
			"x402Version": 1,
		}
		encoded, _ := json.Marshal(envelope)
		w.Header().Set(x402.HeaderPaymentRequired, base64.RawURLEncoding.EncodeToString(encoded))
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := x402.New(nil, stacksAPIStub(t), "stacks:mainnet", netparams.StacksChainIDMainnet, 0)
	defer client.Close()

	_, err := client.Do(context.Background(), x402.Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Signer: testSigner(t),
	})
	require.ErrorIs(t, err, x402.ErrTokenUnsupported)
}
