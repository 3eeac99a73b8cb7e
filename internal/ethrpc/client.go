// Package ethrpc is the remote-call boundary: a minimal JSON-RPC 2.0 client
// for eth_call and eth_blockNumber. The core owns encoding the call data and
// decoding result words; this package only moves bytes. Retry policy belongs
// to the hosting transport, not here — a call either completes within its
// timeout or fails.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 10 * time.Second

// Caller abstracts the eth_call-equivalent boundary so the engine can be
// driven by a stub in tests.
type Caller interface {
	// Call executes eth_call against to with 0x-prefixed call data at the
	// given block height (nil means "latest") and returns the 0x-prefixed
	// result word(s).
	Call(ctx context.Context, to common.Address, data string, block *uint64) (string, error)
	// BlockNumber returns the latest block height.
	BlockNumber(ctx context.Context) (uint64, error)
}

// HTTPClient implements Caller over HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a client for the given JSON-RPC endpoint.
func NewHTTPClient(endpoint string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

type callParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// Call implements Caller.
func (c *HTTPClient) Call(ctx context.Context, to common.Address, data string, block *uint64) (string, error) {
	tag := "latest"
	if block != nil {
		tag = "0x" + strconv.FormatUint(*block, 16)
	}
	var result string
	params := []any{callParams{To: to.Hex(), Data: data}, tag}
	if err := c.call(ctx, "eth_call", params, &result); err != nil {
		return "", err
	}
	return result, nil
}

// BlockNumber implements Caller.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "eth_blockNumber", []any{}, &result); err != nil {
		return 0, err
	}
	number, err := strconv.ParseUint(strings.TrimPrefix(result, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", result, err)
	}
	return number, nil
}

func (c *HTTPClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, payload)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(payload, &rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if rpcResp.Result == nil {
		return fmt.Errorf("%s: response missing result", method)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
