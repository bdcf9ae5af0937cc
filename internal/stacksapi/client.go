// Package stacksapi is a thin read/write client over the Stacks
// blockchain API (Hiro-style) and mempool.space, styled directly on the
// teacher's internal/chain/eth/rpc.Client: a pooled, TLS-1.2-minimum
// *http.Transport, per-call context deadlines, and HTTP-status-code
// error classification. Unlike the teacher's client it speaks plain
// REST/JSON rather than a JSON-RPC envelope, since neither Hiro nor
// mempool.space exposes one.
//
// This package is the external-collaborator shim spec.md frames Hiro
// and mempool.space as: only the interface the quoter (component J) and
// the x402 engine (component K) depend on is in scope, not a general
// Stacks API SDK.
package stacksapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aibtc/wallet-core/internal/ratelimit"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

const maxResponseBody = 10 << 20 // 10 MB

// Timeouts mandated by spec.md §5's cancellation/timeout table.
const (
	PoolReadTimeout     = 5 * time.Second
	SettlementTimeout   = 120 * time.Second
	DefaultPollInterval = 30 * time.Second
	MaxPollDuration     = 2 * time.Hour
)

// Client talks to a single Stacks API base URL (Hiro mainnet/testnet, or
// a compatible mirror) plus mempool.space for Bitcoin-side sBTC deposit
// status.
type Client struct {
	baseURL        string
	mempoolBaseURL string
	httpClient     *http.Client
	rateLimiter    *ratelimit.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithMempoolBaseURL overrides the default mempool.space base URL, e.g.
// for pointing at a testnet mirror.
func WithMempoolBaseURL(url string) Option {
	return func(c *Client) { c.mempoolBaseURL = url }
}

// WithTransport overrides the default pooled transport. Useful for
// sharing one transport across a Hiro client and a mempool.space client.
func WithTransport(t *http.Transport) Option {
	return func(c *Client) { c.httpClient.Transport = t }
}

// NewDefaultTransport returns an HTTP transport with secure, pooled
// defaults: TLS 1.2 minimum, bounded idle connections per host.
func NewDefaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

// New creates a Client against baseURL (a Hiro-compatible Stacks API
// root, e.g. "https://api.hiro.so" or its testnet equivalent).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		mempoolBaseURL: "https://mempool.space/api",
		httpClient: &http.Client{
			Transport: NewDefaultTransport(),
		},
		rateLimiter: ratelimit.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections held by the client's transport.
func (c *Client) Close() {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// PoolState is the subset of an XYK pool's on-chain state the quoter
// needs per spec.md §4.J: the two reserve balances, each side's
// protocol fee in basis points, and the y-side token's identifier.
type PoolState struct {
	XBalance     uint64
	YBalance     uint64
	XProtocolFee uint64
	YProtocolFee uint64
	TokenYName   string
}

// poolStateResponse is the JSON envelope a pool's read-only state
// endpoint returns. Fields mirror the five Clarity tuple entries
// spec.md §4.J names verbatim.
type poolStateResponse struct {
	XBalance     string `json:"x-balance"`
	YBalance     string `json:"y-balance"`
	XProtocolFee string `json:"x-protocol-fee"`
	YProtocolFee string `json:"y-protocol-fee"`
	TokenYName   string `json:"token-y-name"`
}

// GetPoolState fetches one pool's reserve and fee state from its
// read-only state endpoint. Bounded by PoolReadTimeout regardless of any
// longer deadline already on ctx.
func (c *Client) GetPoolState(ctx context.Context, poolID string) (PoolState, error) {
	ctx, cancel := context.WithTimeout(ctx, PoolReadTimeout)
	defer cancel()

	path := fmt.Sprintf("/v2/pools/%s/state", poolID)
	body, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return PoolState{}, err
	}

	var resp poolStateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return PoolState{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing pool state response", err)
	}

	state := PoolState{TokenYName: resp.TokenYName}
	if state.XBalance, err = parseUint(resp.XBalance); err != nil {
		return PoolState{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing x-balance", err)
	}
	if state.YBalance, err = parseUint(resp.YBalance); err != nil {
		return PoolState{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing y-balance", err)
	}
	if state.XProtocolFee, err = parseUint(resp.XProtocolFee); err != nil {
		return PoolState{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing x-protocol-fee", err)
	}
	if state.YProtocolFee, err = parseUint(resp.YProtocolFee); err != nil {
		return PoolState{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing y-protocol-fee", err)
	}
	return state, nil
}

// balanceResponse is the shape of Hiro's account-balances endpoint,
// trimmed to the two fields this module cares about.
type balanceResponse struct {
	STX struct {
		Balance string `json:"balance"`
	} `json:"stx"`
	FungibleTokens map[string]struct {
		Balance string `json:"balance"`
	} `json:"fungible_tokens"`
}

// sbtcTokenIdentifier is the contract-style asset identifier Hiro keys
// sBTC balances under in the fungible_tokens map.
const sbtcTokenIdentifier = "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token::sbtc-token"

// GetSTXBalance returns the STX balance (micro-STX) for address.
func (c *Client) GetSTXBalance(ctx context.Context, address string) (uint64, error) {
	resp, err := c.getBalances(ctx, address)
	if err != nil {
		return 0, err
	}
	return parseUint(resp.STX.Balance)
}

// GetSBTCBalance returns the sBTC balance (satoshis) for address, or 0
// if the account holds none.
func (c *Client) GetSBTCBalance(ctx context.Context, address string) (uint64, error) {
	resp, err := c.getBalances(ctx, address)
	if err != nil {
		return 0, err
	}
	tok, ok := resp.FungibleTokens[sbtcTokenIdentifier]
	if !ok {
		return 0, nil
	}
	return parseUint(tok.Balance)
}

func (c *Client) getBalances(ctx context.Context, address string) (balanceResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, PoolReadTimeout)
	defer cancel()

	path := fmt.Sprintf("/extended/v1/address/%s/balances", address)
	body, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return balanceResponse{}, err
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return balanceResponse{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing balances response", err)
	}
	return resp, nil
}

// GetNonce returns the next unused nonce for address, per Hiro's
// "possible next nonce" field (which already accounts for pending
// mempool transactions).
func (c *Client) GetNonce(ctx context.Context, address string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, PoolReadTimeout)
	defer cancel()

	path := fmt.Sprintf("/extended/v1/address/%s/nonces", address)
	body, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		PossibleNextNonce uint64 `json:"possible_next_nonce"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamFailure, "parsing nonce response", err)
	}
	return resp.PossibleNextNonce, nil
}

// FeePriority selects which percentile of a fee-estimate response to
// use.
type FeePriority int

const (
	// FeePriorityHigh is the high-priority (fastest confirmation)
	// estimate the x402 engine uses for its balance precheck.
	FeePriorityHigh FeePriority = iota
	FeePriorityMedium
	FeePriorityLow
)

// EstimateContractCallFee returns the estimated fee (in micro-STX) for a
// contract-call transaction at the given priority, using Hiro's fee
// estimation endpoint.
func (c *Client) EstimateContractCallFee(ctx context.Context, payloadHex string, priority FeePriority) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, PoolReadTimeout)
	defer cancel()

	reqBody, err := json.Marshal(map[string]any{
		"transaction_payload": payloadHex,
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindGeneral, "encoding fee estimate request", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/fees/transaction", reqBody)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Estimations []struct {
			FeeRate float64 `json:"fee_rate"`
			Fee     uint64  `json:"fee"`
		} `json:"estimations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamFailure, "parsing fee estimate response", err)
	}

	idx := int(priority)
	if idx >= len(resp.Estimations) {
		return 0, apperr.New(apperr.KindUpstreamFailure, "fee estimate response missing requested priority tier")
	}
	return resp.Estimations[idx].Fee, nil
}

// Broadcast submits a signed, serialized transaction (raw bytes, not
// hex) and returns its txid.
func (c *Client) Broadcast(ctx context.Context, rawTx []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, SettlementTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/transactions", rawTx)
	if err != nil {
		return "", err
	}

	var txid string
	if err := json.Unmarshal(body, &txid); err != nil {
		// Hiro returns a bare JSON string txid on success; anything else
		// is treated as the error body itself.
		return "", apperr.Wrap(apperr.KindUpstreamFailure, "parsing broadcast response", err)
	}
	return txid, nil
}

// MempoolStatus is a Bitcoin-side sBTC deposit's confirmation state as
// reported by mempool.space.
type MempoolStatus struct {
	Confirmed     bool
	BlockHeight   uint64
	Confirmations uint64
}

// PollMempoolStatus polls mempool.space for txid's confirmation status
// every interval (DefaultPollInterval if zero) until it confirms, ctx is
// canceled, or MaxPollDuration elapses.
func (c *Client) PollMempoolStatus(ctx context.Context, txid string, interval time.Duration) (MempoolStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, MaxPollDuration)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.getMempoolStatus(ctx, txid)
		if err != nil {
			return MempoolStatus{}, err
		}
		if status.Confirmed {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return MempoolStatus{}, apperr.Wrap(apperr.KindUpstreamFailure, "polling mempool status timed out", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) getMempoolStatus(ctx context.Context, txid string) (MempoolStatus, error) {
	path := fmt.Sprintf("/tx/%s/status", txid)
	body, err := c.do(ctx, http.MethodGet, c.mempoolBaseURL+path, nil)
	if err != nil {
		return MempoolStatus{}, err
	}

	var resp struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return MempoolStatus{}, apperr.Wrap(apperr.KindUpstreamFailure, "parsing mempool status response", err)
	}

	status := MempoolStatus{Confirmed: resp.Confirmed, BlockHeight: resp.BlockHeight}
	if status.Confirmed {
		tip, tipErr := c.getTipHeight(ctx)
		if tipErr == nil && tip >= status.BlockHeight {
			status.Confirmations = tip - status.BlockHeight + 1
		}
	}
	return status, nil
}

func (c *Client) getTipHeight(ctx context.Context) (uint64, error) {
	body, err := c.do(ctx, http.MethodGet, c.mempoolBaseURL+"/blocks/tip/height", nil)
	if err != nil {
		return 0, err
	}
	return parseUint(strings.TrimSpace(string(body)))
}

// do performs a rate-limited HTTP round trip and returns the response
// body, translating non-2xx status codes to structured errors.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx, url); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "rate limiter", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneral, "creating HTTP request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamFailure, "request timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "sending HTTP request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamFailure, "reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyHTTPError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func classifyHTTPError(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 512 {
		trimmed = trimmed[:512] + "..."
	}

	err := apperr.New(apperr.KindUpstreamFailure, "Stacks API request failed").
		WithDetails("status", strconv.Itoa(status))
	if trimmed != "" {
		err = err.WithDetails("body", trimmed)
	}
	return err
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
