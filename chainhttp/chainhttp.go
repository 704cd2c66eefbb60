// Package chainhttp is the stateless JSON-RPC-over-HTTP client bound to
// the chain node: getAccountInfo, batched getMultipleAccounts,
// getRecentBlockhash and sendTransaction, built on the teacher's resty-based
// rest.Client idiom.
package chainhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banky/relay/config"
	"github.com/banky/relay/relayerr"
	"github.com/banky/relay/rest"
	"github.com/banky/relay/types"
	"github.com/cenkalti/backoff/v4"
)

// Client is a stateless JSON-RPC-over-HTTP client for the chain node's
// HTTP endpoint.
type Client struct {
	rest                      *rest.Client
	solanaMaxMultipleAccounts int
}

// New builds a Client bound to endpoint, batching getMultipleAccounts at
// maxMultipleAccounts.
func New(endpoint config.SolanaEndpointConfig, maxMultipleAccounts int) *Client {
	return NewWithRest(rest.New(rest.Config{BaseURL: endpoint.URL()}), maxMultipleAccounts)
}

// NewWithRest builds a Client around an already-constructed rest.Client,
// the seam other packages' tests use to point at an httptest server
// instead of a real chain node.
func NewWithRest(restClient *rest.Client, maxMultipleAccounts int) *Client {
	return &Client{rest: restClient, solanaMaxMultipleAccounts: maxMultipleAccounts}
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call POSTs a single JSON-RPC request, retrying transport errors with
// bounded exponential backoff; server errors (well-formed JSON-RPC error
// objects) are surfaced immediately, no retry.
func call[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var zero T
	req := rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}

	var resp rpcResponse
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	operation := func() error {
		resp = rpcResponse{}
		err := c.rest.Post(ctx, "/", req, &resp)
		if err != nil {
			switch err.(type) {
			case *rest.ClientError, *rest.ServerError:
				return backoff.Permanent(err)
			default:
				return err
			}
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if pe, ok := err.(*backoff.PermanentError); ok {
			return zero, relayerr.New(relayerr.KindVenueError, pe.Err)
		}
		return zero, relayerr.New(relayerr.KindTransport, err)
	}

	if resp.Error != nil {
		return zero, relayerr.ServerError(resp.Error.Code, resp.Error.Message)
	}

	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &zero); err != nil {
			return zero, relayerr.New(relayerr.KindSerialize, err)
		}
	}
	return zero, nil
}

// GetAccountInfo fetches a single account by public key at the given
// commitment level.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey string, commitment types.Commitment) (types.AccountInfo, error) {
	type valueWrap struct {
		Value *types.AccountInfo `json:"value"`
	}
	wrap, err := call[valueWrap](ctx, c, "getAccountInfo", []any{
		pubkey,
		map[string]any{"commitment": commitment.String(), "encoding": "base64"},
	})
	if err != nil {
		return types.AccountInfo{}, err
	}
	if wrap.Value == nil {
		return types.AccountInfo{}, nil
	}
	return *wrap.Value, nil
}

// GetMultipleAccounts fetches many accounts, batching requests at
// solanaMaxMultipleAccounts per the node's own cap.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []string, commitment types.Commitment) ([]*types.AccountInfo, error) {
	results := make([]*types.AccountInfo, 0, len(pubkeys))

	for start := 0; start < len(pubkeys); start += c.solanaMaxMultipleAccounts {
		end := start + c.solanaMaxMultipleAccounts
		if end > len(pubkeys) {
			end = len(pubkeys)
		}
		batch := pubkeys[start:end]

		type valueWrap struct {
			Value []*types.AccountInfo `json:"value"`
		}
		wrap, err := call[valueWrap](ctx, c, "getMultipleAccounts", []any{
			batch,
			map[string]any{"commitment": commitment.String(), "encoding": "base64"},
		})
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}
		results = append(results, wrap.Value...)
	}

	return results, nil
}

// GetRecentBlockhash fetches a recent blockhash for transaction signing.
func (c *Client) GetRecentBlockhash(ctx context.Context) (string, error) {
	type blockhashValue struct {
		Blockhash string `json:"blockhash"`
	}
	type valueWrap struct {
		Value blockhashValue `json:"value"`
	}
	wrap, err := call[valueWrap](ctx, c, "getRecentBlockhash", []any{map[string]any{"commitment": "finalized"}})
	if err != nil {
		return "", err
	}
	return wrap.Value.Blockhash, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, base64Tx string) (string, error) {
	return call[string](ctx, c, "sendTransaction", []any{base64Tx, map[string]any{"encoding": "base64"}})
}
