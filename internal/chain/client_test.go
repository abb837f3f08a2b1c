package chain

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	echoTarget  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	emptyTarget = common.HexToAddress("0x0000000000000000000000000000000000000002")
	failTarget  = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// ethService answers eth_call by echoing the calldata for echoTarget.
type ethService struct {
	mu    sync.Mutex
	calls int
}

func (s *ethService) Call(ctx context.Context, args callArgs, block string) (hexutil.Bytes, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if block != "latest" {
		return nil, errors.New("unexpected block tag " + block)
	}
	switch args.To {
	case echoTarget:
		return args.Data, nil
	case emptyTarget:
		return hexutil.Bytes{}, nil
	default:
		return nil, errors.New("execution reverted")
	}
}

func newTestClient(t *testing.T, batchSize int) (*Client, *ethService) {
	t.Helper()

	svc := &ethService{}
	server := rpc.NewServer()
	if err := server.RegisterName("eth", svc); err != nil {
		t.Fatalf("register service: %v", err)
	}
	t.Cleanup(server.Stop)

	client := NewClientWithRPC(rpc.DialInProc(server), batchSize)
	t.Cleanup(client.Close)
	return client, svc
}

func TestBatchCallAlignsResults(t *testing.T) {
	client, svc := newTestClient(t, 2)

	calls := []Call{
		{To: echoTarget, Data: []byte{0x01}},
		{To: failTarget, Data: []byte{0x02}},
		{To: emptyTarget, Data: []byte{0x03}},
		{To: echoTarget, Data: []byte{0x04, 0x05}},
		{To: echoTarget, Data: []byte{0x06}},
	}

	results, err := client.BatchCall(context.Background(), calls)
	if err != nil {
		t.Fatalf("batch call: %v", err)
	}
	if len(results) != len(calls) {
		t.Fatalf("expected %d results, got %d", len(calls), len(results))
	}

	for _, idx := range []int{0, 3, 4} {
		if results[idx].Err != nil {
			t.Fatalf("result %d: unexpected error %v", idx, results[idx].Err)
		}
		if !bytes.Equal(results[idx].Data, calls[idx].Data) {
			t.Fatalf("result %d: data mismatch %x != %x", idx, results[idx].Data, calls[idx].Data)
		}
	}
	if results[1].Err == nil {
		t.Fatalf("expected error for reverted call")
	}
	if !errors.Is(results[2].Err, ErrEmptyResult) {
		t.Fatalf("expected empty result error, got %v", results[2].Err)
	}
	if svc.calls != len(calls) {
		t.Fatalf("expected %d eth_call invocations, got %d", len(calls), svc.calls)
	}
}

func TestBatchCallEmpty(t *testing.T) {
	client, svc := newTestClient(t, 10)

	results, err := client.BatchCall(context.Background(), nil)
	if err != nil {
		t.Fatalf("batch call: %v", err)
	}
	if len(results) != 0 || svc.calls != 0 {
		t.Fatalf("expected no work for empty batch")
	}
}

func TestNewClientWithRPCDefaultsBatchSize(t *testing.T) {
	client := NewClientWithRPC(nil, 0)
	if client.batchSize != DefaultBatchSize {
		t.Fatalf("expected default batch size %d, got %d", DefaultBatchSize, client.batchSize)
	}
}

func TestBatchCallWithRateLimit(t *testing.T) {
	client, svc := newTestClient(t, 1)
	client.WithRateLimit(1000).WithRetry(2, time.Millisecond)

	calls := []Call{
		{To: echoTarget, Data: []byte{0x01}},
		{To: echoTarget, Data: []byte{0x02}},
		{To: echoTarget, Data: []byte{0x03}},
	}
	results, err := client.BatchCall(context.Background(), calls)
	if err != nil {
		t.Fatalf("batch call: %v", err)
	}
	for i, result := range results {
		if !bytes.Equal(result.Data, calls[i].Data) {
			t.Fatalf("result %d: data mismatch %x", i, result.Data)
		}
	}
	if svc.calls != len(calls) {
		t.Fatalf("expected %d eth_call invocations, got %d", len(calls), svc.calls)
	}
}

func TestBatchCallRateLimitHonorsContext(t *testing.T) {
	client, _ := newTestClient(t, 1)
	client.WithRateLimit(0.001)

	// The first request consumes the only token; the second must wait.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	calls := []Call{{To: echoTarget, Data: []byte{0x01}}, {To: echoTarget, Data: []byte{0x02}}}
	if _, err := client.BatchCall(ctx, calls); err == nil {
		t.Fatalf("expected rate limiter error")
	}
}
