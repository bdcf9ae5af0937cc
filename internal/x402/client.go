// Package x402 implements the payment-required HTTP client engine per
// spec.md §4.K: a BUILD_REQUEST→SEND→(PARSE_REQUIREMENTS→...)→RETRY_ONCE
// state machine over a 402-challenged HTTP call, settling payment with a
// sponsored Stacks transaction.
package x402

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aibtc/wallet-core/internal/clarity"
	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/metrics"
	"github.com/aibtc/wallet-core/internal/retry"
	"github.com/aibtc/wallet-core/internal/stacksapi"
	"github.com/aibtc/wallet-core/internal/stackstx"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

// Header names the x402 wire protocol uses, exported so callers and
// tests can assert on the exact names.
const (
	HeaderPaymentRequired = "X-Payment-Required"
	HeaderPayment         = "X-Payment"
)

const (
	x402VersionResponse = 1
	x402VersionPayment  = 2

	dedupTTL       = 60 * time.Second
	dedupSweepTick = 30 * time.Second

	sbtcAssetSuffix  = "::token-sbtc"
	sbtcAssetLiteral = "sbtc"

	// sbtcTokenContractAddress is the deployed sBTC token contract, the
	// target of every sBTC `transfer` call regardless of who the payment
	// is made out to.
	sbtcTokenContractAddress = "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token"

	stacksNetworkPrefix = "stacks:"
)

// Sentinel fatal errors, one per FAIL branch of spec.md §4.K's diagram.
var (
	ErrBadPaymentRequirements = apperr.New(apperr.KindInvalidInput, "402 response carried invalid payment requirements")
	ErrNetworkMismatch        = apperr.New(apperr.KindNetworkMismatch, "no accepted payment option targets this client's network")
	ErrTokenUnsupported       = apperr.New(apperr.KindInvalidInput, "no accepted payment option uses a supported token")
	ErrInsufficientBalance    = apperr.New(apperr.KindInsufficientBalance, "insufficient balance to cover payment and fee")
	ErrRetryExceeded          = apperr.New(apperr.KindPaymentRetryExceeded, "payment was presented but the server returned 402 again")
)

// Signer produces a sponsored transaction's origin signature. The
// session/keystore layer supplies the live private key.
type Signer interface {
	PrivateKey() []byte
	StacksAddress() string
}

// Requirement is one entry from a 402 response's `accepts` array.
type Requirement struct {
	Network string `json:"network"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount,string"`
	PayTo   string `json:"payTo"`
}

type paymentRequiredEnvelope struct {
	Accepts     []Requirement `json:"accepts"`
	Resource    string        `json:"resource"`
	X402Version int           `json:"x402Version"`
}

// legacy v1 fallback body shape.
type paymentRequiredV1 struct {
	Amount    uint64 `json:"amount,string"`
	Asset     string `json:"asset"`
	Recipient string `json:"recipient"`
	Network   string `json:"network"`
}

type tokenKind int

const (
	tokenSTX tokenKind = iota
	tokenSBTC
)

type dedupEntry struct {
	txid     string
	storedAt time.Time
}

// Client drives the x402 state machine over an http.Client, with a
// process-wide dedup cache and a single-retry guard per spec.md §4.K.
type Client struct {
	http      *http.Client
	stacksAPI *stacksapi.Client
	network   string
	chainID   uint32
	version   byte

	mu        sync.Mutex
	dedup     map[string]dedupEntry
	retried   map[string]bool
	sweepStop chan struct{}
}

// New builds a Client. network must start with "stacks:" followed by
// "mainnet" or "testnet", matching the requirement strings a server
// advertises.
func New(httpClient *http.Client, stacksAPI *stacksapi.Client, network string, chainID uint32, version byte) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: stacksapi.SettlementTimeout}
	}
	c := &Client{
		http:      httpClient,
		stacksAPI: stacksAPI,
		network:   network,
		chainID:   chainID,
		version:   version,
		dedup:     make(map[string]dedupEntry),
		retried:   make(map[string]bool),
		sweepStop: make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Close stops the dedup sweeper goroutine.
func (c *Client) Close() {
	close(c.sweepStop)
}

func (c *Client) sweepLoop() {
	ticker := time.NewTicker(dedupSweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-c.sweepStop:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *Client) sweepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, entry := range c.dedup {
		if now.Sub(entry.storedAt) > dedupTTL {
			delete(c.dedup, key)
		}
	}
}

// Request is one x402-protected HTTP call.
type Request struct {
	Method string
	URL    string
	Params map[string]string
	Body   []byte
	Signer Signer
	Nonce  uint64 // the signer's current Stacks account nonce
}

// Result is the outcome of a successful (possibly payment-settled) call.
type Result struct {
	StatusCode int
	Body       []byte
	TxID       string // non-empty if payment was settled
	Retried    bool
}

// Do executes req per the BUILD_REQUEST→SEND state machine, settling a
// 402 challenge with a sponsored Stacks transaction and retrying exactly
// once.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	key := dedupKey(req)

	if cached, ok := c.lookupDedup(key); ok {
		return &Result{StatusCode: http.StatusOK, TxID: cached}, nil
	}

	result, err := c.do(ctx, req, key)
	metrics.Global.RecordX402Settlement(result != nil && result.Retried, err)
	return result, err
}

func (c *Client) do(ctx context.Context, req Request, key string) (*Result, error) {
	resp, body, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 == 2 {
		return &Result{StatusCode: resp.StatusCode, Body: body}, nil
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return nil, apperr.New(apperr.KindUpstreamFailure, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	if c.alreadyRetried(key) {
		return nil, ErrRetryExceeded
	}

	requirement, err := parsePaymentRequired(resp, body)
	if err != nil {
		return nil, err
	}

	selected, kind, err := selectRequirement(requirement.Accepts, c.network)
	if err != nil {
		return nil, err
	}

	if req.Signer == nil {
		return nil, apperr.New(apperr.KindWalletLocked, "no signer available to settle payment")
	}

	if err := c.checkBalance(ctx, req.Signer.StacksAddress(), kind, selected.Amount); err != nil {
		return nil, err
	}

	txHex, txid, err := c.buildSignedPayment(req, selected, kind)
	if err != nil {
		return nil, err
	}

	paymentHeader, err := encodePaymentHeader(requirement.Resource, selected, txHex)
	if err != nil {
		return nil, err
	}

	c.markRetried(key)

	retryResp, retryBody, err := c.sendWithRetry503(ctx, req, paymentHeader)
	if err != nil {
		return nil, err
	}
	if retryResp.StatusCode/100 == 2 {
		c.storeDedup(key, txid)
		return &Result{StatusCode: retryResp.StatusCode, Body: retryBody, TxID: txid, Retried: true}, nil
	}
	if retryResp.StatusCode == http.StatusPaymentRequired {
		return nil, ErrRetryExceeded
	}
	return nil, apperr.New(apperr.KindUpstreamFailure, fmt.Sprintf("unexpected status %d on retry", retryResp.StatusCode))
}

func (c *Client) send(ctx context.Context, req Request, paymentHeader *string) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, stacksapi.SettlementTimeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = strings.NewReader(string(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindGeneral, "building request", err)
	}
	if paymentHeader != nil {
		httpReq.Header.Set(HeaderPayment, *paymentHeader)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindUpstreamFailure, "sending request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindUpstreamFailure, "reading response body", err)
	}
	return resp, body, nil
}

// sendWithRetry503 retries the relay-rate-limited-503 case with the
// teacher's exponential backoff shape; the 402 retry itself is never
// looped — only this specific transport-level 503 is.
func (c *Client) sendWithRetry503(ctx context.Context, req Request, paymentHeader string) (*http.Response, []byte, error) {
	type sendResult struct {
		resp *http.Response
		body []byte
	}

	result, err := retry.Do(ctx, func() (sendResult, error) {
		resp, body, err := c.send(ctx, req, &paymentHeader)
		if err != nil {
			return sendResult{}, err
		}
		if resp.StatusCode == http.StatusServiceUnavailable {
			return sendResult{}, retry.WrapRetryable(apperr.New(apperr.KindUpstreamFailure, "relay returned 503"))
		}
		return sendResult{resp: resp, body: body}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result.resp, result.body, nil
}

func parsePaymentRequired(resp *http.Response, body []byte) (paymentRequiredEnvelope, error) {
	if header := resp.Header.Get(HeaderPaymentRequired); header != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(header)
		if err != nil {
			return paymentRequiredEnvelope{}, apperr.Wrap(apperr.KindInvalidInput, ErrBadPaymentRequirements.Message, err)
		}
		var envelope paymentRequiredEnvelope
		if err := json.Unmarshal(decoded, &envelope); err != nil {
			return paymentRequiredEnvelope{}, apperr.Wrap(apperr.KindInvalidInput, ErrBadPaymentRequirements.Message, err)
		}
		return envelope, nil
	}

	var v1 paymentRequiredV1
	if err := json.Unmarshal(body, &v1); err != nil {
		return paymentRequiredEnvelope{}, apperr.Wrap(apperr.KindInvalidInput, ErrBadPaymentRequirements.Message, err)
	}
	return paymentRequiredEnvelope{
		Accepts: []Requirement{{
			Network: v1.Network,
			Asset:   v1.Asset,
			Amount:  v1.Amount,
			PayTo:   v1.Recipient,
		}},
		X402Version: x402VersionResponse,
	}, nil
}

// selectRequirement picks the first accepts entry targeting a Stacks
// network, then checks it against this client's own network — a
// mismatch there is fatal rather than falling through to a later entry,
// per the first-stacks-entry-wins selection rule.
func selectRequirement(accepts []Requirement, network string) (Requirement, tokenKind, error) {
	for _, req := range accepts {
		if !strings.HasPrefix(req.Network, stacksNetworkPrefix) {
			continue
		}
		if req.Network != network {
			return Requirement{}, 0, ErrNetworkMismatch
		}
		return req, classifyAsset(req.Asset), nil
	}
	return Requirement{}, 0, ErrTokenUnsupported
}

func classifyAsset(asset string) tokenKind {
	if asset == sbtcAssetLiteral || strings.HasSuffix(asset, sbtcAssetSuffix) {
		return tokenSBTC
	}
	return tokenSTX
}

func (c *Client) checkBalance(ctx context.Context, address string, kind tokenKind, amount uint64) error {
	fee, err := c.stacksAPI.EstimateContractCallFee(ctx, "", stacksapi.FeePriorityHigh)
	if err != nil {
		return err
	}

	stxBalance, err := c.stacksAPI.GetSTXBalance(ctx, address)
	if err != nil {
		return err
	}

	switch kind {
	case tokenSTX:
		if stxBalance < amount+fee {
			return ErrInsufficientBalance
		}
	case tokenSBTC:
		sbtcBalance, err := c.stacksAPI.GetSBTCBalance(ctx, address)
		if err != nil {
			return err
		}
		if sbtcBalance < amount || stxBalance < fee {
			return ErrInsufficientBalance
		}
	}
	return nil
}

func (c *Client) buildSignedPayment(req Request, selected Requirement, kind tokenKind) (txHex string, txid string, err error) {
	payToPrincipal, err := parsePrincipal(selected.PayTo)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInvalidInput, "parsing payTo principal", err)
	}

	var tx *stackstx.Transaction
	switch kind {
	case tokenSTX:
		tx, err = stackstx.NewTokenTransfer(c.version, c.chainID, req.Nonce, payToPrincipal, selected.Amount, "x402")
	case tokenSBTC:
		var senderPrincipal clarity.Principal
		senderPrincipal, err = parsePrincipal(req.Signer.StacksAddress())
		if err != nil {
			return "", "", apperr.Wrap(apperr.KindInvalidInput, "parsing sender principal", err)
		}
		var contract clarity.Principal
		contract, err = parsePrincipal(sbtcTokenContractAddress)
		if err != nil {
			return "", "", apperr.Wrap(apperr.KindGeneral, "parsing sBTC contract principal", err)
		}
		tx, err = stackstx.NewSBTCTransfer(c.version, c.chainID, req.Nonce, contract, senderPrincipal, payToPrincipal, selected.Amount)
	}
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindGeneral, "building payment transaction", err)
	}

	if err := tx.SignOrigin(req.Signer.PrivateKey()); err != nil {
		return "", "", apperr.Wrap(apperr.KindGeneral, "signing payment transaction", err)
	}

	serialized := tx.Serialize()
	txHex = "0x" + hex.EncodeToString(serialized)
	txid = fmt.Sprintf("%x", sha256.Sum256(serialized))
	return txHex, txid, nil
}

func parsePrincipal(addr string) (clarity.Principal, error) {
	version, hash160, contractName, err := keyderiv.DecodeStacksAddress(addr)
	if err != nil {
		return clarity.Principal{}, err
	}
	return clarity.Principal{Version: version, Hash160: hash160, ContractName: contractName}, nil
}

type paymentPayloadV2 struct {
	X402Version int         `json:"x402Version"`
	Resource    string      `json:"resource"`
	Accepted    Requirement `json:"accepted"`
	Payload     struct {
		Transaction string `json:"transaction"`
	} `json:"payload"`
}

func encodePaymentHeader(resource string, selected Requirement, txHex string) (string, error) {
	payload := paymentPayloadV2{
		X402Version: x402VersionPayment,
		Resource:    resource,
		Accepted:    selected,
	}
	payload.Payload.Transaction = txHex

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGeneral, "encoding payment payload", err)
	}
	return base64.RawURLEncoding.EncodeToString(encoded), nil
}

func dedupKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Method))
	h.Write([]byte(req.URL))

	params := make([]string, 0, len(req.Params))
	for k, v := range req.Params {
		params = append(params, k+"="+v)
	}
	sort.Strings(params)
	for _, p := range params {
		h.Write([]byte(p))
	}

	h.Write(req.Body)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *Client) lookupDedup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.dedup[key]
	if !ok || time.Since(entry.storedAt) > dedupTTL {
		return "", false
	}
	return entry.txid, true
}

func (c *Client) storeDedup(key, txid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dedup[key] = dedupEntry{txid: txid, storedAt: time.Now()}
}

func (c *Client) alreadyRetried(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retried[key]
}

func (c *Client) markRetried(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retried[key] = true
}

