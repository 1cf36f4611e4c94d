// Package ledger is a JSON-RPC client for the object ledger's full node.
// It exposes only the primitives the social layer consumes: owned object
// queries, batched object reads, module event queries and transaction
// lookups.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/ratelimit"
)

const (
	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 30 * time.Second
	// DefaultTxWaitTimeout bounds WaitForTransaction.
	DefaultTxWaitTimeout = 60 * time.Second
	// DefaultPollInterval is the interval between transaction lookups.
	DefaultPollInterval = 2 * time.Second
	// MaxMultiGetObjects is the node's limit on ids per multi-get request.
	MaxMultiGetObjects = 50
	// ownedObjectsPageSize is the page size requested for owned objects.
	ownedObjectsPageSize = 50
)

// Client talks to a single full node.
type Client struct {
	rpcURL       string
	httpClient   *http.Client
	limiter      ratelimit.Limiter
	logger       *slog.Logger
	pollInterval time.Duration
	waitTimeout  time.Duration
	nextID       atomic.Uint64
}

// Config holds client configuration.
type Config struct {
	RPCURL  string
	Timeout time.Duration
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond int
	PollInterval      time.Duration
	WaitTimeout       time.Duration
	Logger            *slog.Logger
}

// NewClient creates a new ledger client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultTxWaitTimeout
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.RequestsPerSecond)
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:      limiter,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
		waitTimeout:  cfg.WaitTimeout,
	}, nil
}

// Call makes an RPC call to the node. Every failure is returned as a
// *TransportError.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		rpcRequests.WithLabelValues(method, status).Inc()
		rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	res, err := c.call(ctx, method, params)
	if err != nil {
		status = "failed"
		return nil, &TransportError{Method: method, Err: err}
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.limiter.Take()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("received non-200 response code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// GetOwnedObjects returns every object of structType owned by owner,
// following cursors until the last page.
func (c *Client) GetOwnedObjects(ctx context.Context, owner, structType string) ([]ObjectResponse, error) {
	query := OwnedObjectsQuery{
		Filter: &ObjectFilter{StructType: structType},
		Options: &ObjectDataOptions{
			ShowType:    true,
			ShowContent: true,
		},
	}

	var cursor *string
	var objects []ObjectResponse
	for {
		result, err := c.Call(ctx, "iotax_getOwnedObjects", []any{owner, query, cursor, ownedObjectsPageSize})
		if err != nil {
			return nil, err
		}

		var page ObjectPage
		if err := json.Unmarshal(result, &page); err != nil {
			return nil, &TransportError{Method: "iotax_getOwnedObjects", Err: fmt.Errorf("decode page: %w", err)}
		}

		objects = append(objects, page.Data...)

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}

		c.logger.Debug("fetching next owned objects page", "owner", owner, "type", structType, "cursor", *page.NextCursor)
		cursor = page.NextCursor
	}

	return objects, nil
}

// MultiGetObjects fetches up to MaxMultiGetObjects objects by id in one
// request. Entries for missing or deleted objects carry an Error and no Data.
func (c *Client) MultiGetObjects(ctx context.Context, ids []string) ([]ObjectResponse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxMultiGetObjects {
		return nil, fmt.Errorf("too many ids in one request: %d > %d", len(ids), MaxMultiGetObjects)
	}

	opts := ObjectDataOptions{
		ShowType:    true,
		ShowContent: true,
	}

	result, err := c.Call(ctx, "iota_multiGetObjects", []any{ids, opts})
	if err != nil {
		return nil, err
	}

	var objects []ObjectResponse
	if err := json.Unmarshal(result, &objects); err != nil {
		return nil, &TransportError{Method: "iota_multiGetObjects", Err: fmt.Errorf("decode objects: %w", err)}
	}
	return objects, nil
}

// QueryEvents returns at most limit events matching query, newest first
// when descending is set.
func (c *Client) QueryEvents(ctx context.Context, query EventQuery, limit int, descending bool) ([]Event, error) {
	result, err := c.Call(ctx, "iotax_queryEvents", []any{query, nil, limit, descending})
	if err != nil {
		return nil, err
	}

	var page EventPage
	if err := json.Unmarshal(result, &page); err != nil {
		return nil, &TransportError{Method: "iotax_queryEvents", Err: fmt.Errorf("decode events: %w", err)}
	}
	return page.Data, nil
}

// GetTransactionBlock returns a transaction with its effects.
func (c *Client) GetTransactionBlock(ctx context.Context, digest string) (*TransactionBlock, error) {
	opts := map[string]bool{"showEffects": true}
	result, err := c.Call(ctx, "iota_getTransactionBlock", []any{digest, opts})
	if err != nil {
		return nil, err
	}

	var tx TransactionBlock
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, &TransportError{Method: "iota_getTransactionBlock", Err: fmt.Errorf("decode transaction: %w", err)}
	}
	return &tx, nil
}

// WaitForTransaction polls for a transaction until the node knows it or the
// wait timeout expires. A missing transaction is treated as transient.
func (c *Client) WaitForTransaction(ctx context.Context, digest string) (*TransactionBlock, error) {
	wctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		tx, err := c.GetTransactionBlock(wctx, digest)
		if err == nil {
			return tx, nil
		}
		if !isNotFoundError(err) {
			return nil, err
		}

		select {
		case <-wctx.Done():
			return nil, &TransportError{Method: "iota_getTransactionBlock", Err: fmt.Errorf("wait for %s: %w", digest, wctx.Err())}
		case <-ticker.C:
		}
	}
}

func isNotFoundError(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "not find") || strings.Contains(msg, "not found")
}
