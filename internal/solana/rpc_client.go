package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs a JSON-RPC call, retrying transport failures, HTTP 429 and
// other non-200 replies with exponential backoff. JSON-RPC errors are
// returned as *RPCError without a retry.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	return c.invoke(ctx, method, params, result, c.maxRetries)
}

// callOnce performs a JSON-RPC call exactly once. Methods that change
// cluster state (requestAirdrop, sendTransaction) go through here: a 429 or a
// dropped connection does not mean the node discarded the request.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params []interface{}, result interface{}) error {
	return c.invoke(ctx, method, params, result, 0)
}

func (c *HTTPClient) invoke(ctx context.Context, method string, params []interface{}, result interface{}, retries int) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds(), err)
	}()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited (429)")
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		if rpcResp.Error != nil {
			return backoff.Permanent(rpcResp.Error)
		}
		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshal result: %w", err))
			}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = c.maxDelay
	b.Multiplier = c.backoffMult
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var transient bool
	tracked := func() error {
		err := op()
		var perm *backoff.PermanentError
		transient = err != nil && !errors.As(err, &perm)
		return err
	}
	err = backoff.Retry(tracked, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
	if err == nil || !transient || retries == 0 || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

func commitmentConfig(commitment Commitment) map[string]interface{} {
	cfg := map[string]interface{}{}
	if commitment != "" {
		cfg["commitment"] = string(commitment)
	}
	return cfg
}

// GetBalance returns the lamport balance of an account.
func (c *HTTPClient) GetBalance(ctx context.Context, account sol.PublicKey, commitment Commitment) (uint64, error) {
	params := []interface{}{account.String(), commitmentConfig(commitment)}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// RequestAirdrop asks the cluster faucet for lamports.
func (c *HTTPClient) RequestAirdrop(ctx context.Context, account sol.PublicKey, lamports uint64, commitment Commitment) (sol.Signature, error) {
	params := []interface{}{account.String(), lamports, commitmentConfig(commitment)}

	var result string
	if err := c.callOnce(ctx, "requestAirdrop", params, &result); err != nil {
		return sol.Signature{}, err
	}
	sig, err := sol.SignatureFromBase58(result)
	if err != nil {
		return sol.Signature{}, fmt.Errorf("parse airdrop signature: %w", err)
	}
	return sig, nil
}

// GetLatestBlockhash returns a recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context, commitment Commitment) (*Blockhash, error) {
	params := []interface{}{commitmentConfig(commitment)}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}
	hash, err := sol.HashFromBase58(result.Value.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}
	return &Blockhash{Hash: hash, LastValidBlockHeight: result.Value.LastValidBlockHeight}, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64, commitment Commitment) (uint64, error) {
	params := []interface{}{dataLen, commitmentConfig(commitment)}

	var result uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, account sol.PublicKey, commitment Commitment) (*AccountInfo, error) {
	cfg := commitmentConfig(commitment)
	cfg["encoding"] = "base64"
	params := []interface{}{account.String(), cfg}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	owner, err := sol.PublicKeyFromBase58(result.Value.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account data: %w", err)
		}
		info.Data = data
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// SendTransaction submits a signed transaction encoded as base64.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx *sol.Transaction, opts SendOptions) (sol.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return sol.Signature{}, fmt.Errorf("serialize transaction: %w", err)
	}

	cfg := map[string]interface{}{
		"encoding":      "base64",
		"skipPreflight": opts.SkipPreflight,
	}
	if opts.PreflightCommitment != "" {
		cfg["preflightCommitment"] = string(opts.PreflightCommitment)
	}
	if opts.MaxRetries != nil {
		cfg["maxRetries"] = *opts.MaxRetries
	}
	params := []interface{}{base64.StdEncoding.EncodeToString(raw), cfg}

	var result string
	if err := c.callOnce(ctx, "sendTransaction", params, &result); err != nil {
		return sol.Signature{}, err
	}
	sig, err := sol.SignatureFromBase58(result)
	if err != nil {
		return sol.Signature{}, fmt.Errorf("parse signature: %w", err)
	}
	return sig, nil
}

// GetSignatureStatuses returns one status per signature, nil when unknown.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures ...sol.Signature) ([]*SignatureStatus, error) {
	sigs := make([]string, len(signatures))
	for i, s := range signatures {
		sigs[i] = s.String()
	}
	params := []interface{}{sigs, map[string]interface{}{"searchTransactionHistory": true}}

	var result struct {
		Value []*struct {
			Slot               uint64      `json:"slot"`
			Confirmations      *uint64     `json:"confirmations"`
			Err                interface{} `json:"err"`
			ConfirmationStatus string      `json:"confirmationStatus"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(signatures))
	for i, v := range result.Value {
		if i >= len(statuses) || v == nil {
			continue
		}
		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			Err:                v.Err,
			ConfirmationStatus: Commitment(v.ConfirmationStatus),
		}
	}
	return statuses, nil
}
