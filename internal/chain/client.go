package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// DefaultBatchSize bounds the number of calls per JSON-RPC batch request.
const DefaultBatchSize = 500

// Call is a read-only contract call.
type Call struct {
	To   common.Address
	Data []byte
}

// CallResult is the outcome of one Call inside a batch.
type CallResult struct {
	Data []byte
	Err  error
}

// BatchCaller executes read-only calls in bulk. Results are index-aligned
// with calls; a failed call sets its own Err and never fails the batch.
type BatchCaller interface {
	BatchCall(ctx context.Context, calls []Call) ([]CallResult, error)
}

// ErrEmptyResult is reported for calls that returned no data, typically
// because the target has no code.
var ErrEmptyResult = errors.New("empty call result")

// Client wraps go-ethereum RPC and provides batched eth_call.
type Client struct {
	rpcClient    *rpc.Client
	batchSize    int
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, batchSize int) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewClientWithRPC(rpcClient, batchSize), nil
}

// NewClientWithRPC wraps an existing RPC client.
func NewClientWithRPC(rpcClient *rpc.Client, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{
		rpcClient: rpcClient,
		batchSize: batchSize,
	}
}

// WithRetry retries a failed batch request up to maxRetries times with
// exponential backoff starting at backoff. Per-call errors are not retried.
func (c *Client) WithRetry(maxRetries int, backoff time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryBackoff = backoff
	return c
}

// WithRateLimit caps batch requests at rps per second. Zero or less removes
// the limit.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return c
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// BatchCall sends calls as eth_call requests against the latest block, one
// JSON-RPC batch per chunk of at most batchSize calls.
func (c *Client) BatchCall(ctx context.Context, calls []Call) ([]CallResult, error) {
	results := make([]CallResult, len(calls))
	if len(calls) == 0 {
		return results, nil
	}

	spans, err := SplitBatches(len(calls), c.batchSize)
	if err != nil {
		return nil, err
	}

	for _, span := range spans {
		elems := make([]rpc.BatchElem, 0, span.Len())
		outputs := make([]hexutil.Bytes, span.Len())
		for i := span.Start; i < span.End; i++ {
			elems = append(elems, rpc.BatchElem{
				Method: "eth_call",
				Args:   []interface{}{toCallArg(calls[i]), "latest"},
				Result: &outputs[i-span.Start],
			})
		}

		err := withRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return fmt.Errorf("rate limiter: %w", err)
				}
			}
			for j := range elems {
				elems[j].Error = nil
				outputs[j] = nil
			}
			return c.rpcClient.BatchCallContext(ctx, elems)
		})
		if err != nil {
			return nil, fmt.Errorf("batch call [%d,%d): %w", span.Start, span.End, err)
		}

		for j, elem := range elems {
			idx := span.Start + j
			switch {
			case elem.Error != nil:
				results[idx].Err = elem.Error
			case len(outputs[j]) == 0:
				results[idx].Err = ErrEmptyResult
			default:
				results[idx].Data = outputs[j]
			}
		}
	}

	return results, nil
}

func toCallArg(call Call) map[string]interface{} {
	return map[string]interface{}{
		"to":   call.To,
		"data": hexutil.Bytes(call.Data),
	}
}
