package dex

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zaptest"

	"triarb/internal/chain"
	"triarb/internal/model"
)

type callHandler func(input []byte) ([]byte, error)

// fakeCaller dispatches calls by target and method selector.
type fakeCaller struct {
	handlers map[common.Address]map[string]callHandler
	batches  int
	calls    int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: make(map[common.Address]map[string]callHandler)}
}

func (f *fakeCaller) handle(to common.Address, method abi.Method, handler callHandler) {
	if f.handlers[to] == nil {
		f.handlers[to] = make(map[string]callHandler)
	}
	f.handlers[to][string(method.ID)] = handler
}

func (f *fakeCaller) BatchCall(ctx context.Context, calls []chain.Call) ([]chain.CallResult, error) {
	f.batches++
	f.calls += len(calls)
	results := make([]chain.CallResult, len(calls))
	for i, call := range calls {
		handler, ok := f.handlers[call.To][string(call.Data[:4])]
		if !ok {
			results[i].Err = errors.New("execution reverted")
			continue
		}
		results[i].Data, results[i].Err = handler(call.Data[4:])
	}
	return results, nil
}

var (
	weth    = model.Token{Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18}
	usdc    = model.Token{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6}
	dai     = model.Token{Symbol: "DAI", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18}
	factory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	poolOne = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
	poolTwo = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
)

func mustABI(t *testing.T, load func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := load()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func TestFindPools(t *testing.T) {
	factoryABI := mustABI(t, V3FactoryABI)
	getPool := factoryABI.Methods["getPool"]

	caller := newFakeCaller()
	caller.handle(factory, getPool, func(input []byte) ([]byte, error) {
		args, err := getPool.Inputs.Unpack(input)
		if err != nil {
			return nil, err
		}
		a := args[0].(common.Address)
		b := args[1].(common.Address)
		fee := args[2].(*big.Int)
		pair := model.NewPairKey(a, b)
		switch {
		case pair == model.NewPairKey(weth.Address, usdc.Address) && fee.Uint64() == 500:
			return getPool.Outputs.Pack(poolOne)
		case pair == model.NewPairKey(usdc.Address, dai.Address) && fee.Uint64() == 100:
			return nil, errors.New("rate limited")
		default:
			return getPool.Outputs.Pack(common.Address{})
		}
	})

	finder := NewPoolFinder(caller, factory, zaptest.NewLogger(t))
	queries := []model.PoolQuery{
		{TokenA: usdc, TokenB: weth, Fee: 500},
		{TokenA: weth, TokenB: dai, Fee: 3000},
		{TokenA: dai, TokenB: usdc, Fee: 100},
	}

	results, err := finder.FindPools(context.Background(), queries)
	if err != nil {
		t.Fatalf("find pools: %v", err)
	}
	if caller.batches != 1 {
		t.Fatalf("expected a single batch, got %d", caller.batches)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Err != nil || results[0].Pool != poolOne {
		t.Fatalf("expected pool %s, got %s (%v)", poolOne.Hex(), results[0].Pool.Hex(), results[0].Err)
	}
	if results[0].Query != queries[0] {
		t.Fatalf("query not carried through")
	}
	if results[1].Err != nil || results[1].Pool != (common.Address{}) {
		t.Fatalf("expected zero address for missing pool, got %s (%v)", results[1].Pool.Hex(), results[1].Err)
	}
	if results[2].Err == nil || !strings.Contains(results[2].Err.Error(), "rate limited") {
		t.Fatalf("expected sub-call error, got %v", results[2].Err)
	}
}

type failingCaller struct{}

func (failingCaller) BatchCall(ctx context.Context, calls []chain.Call) ([]chain.CallResult, error) {
	return nil, errors.New("connection refused")
}

func TestFindPoolsTransportError(t *testing.T) {
	finder := NewPoolFinder(failingCaller{}, factory, nil)
	_, err := finder.FindPools(context.Background(), []model.PoolQuery{{TokenA: weth, TokenB: usdc, Fee: 500}})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func packSlot0(t *testing.T, poolABI abi.ABI, sqrtPrice *big.Int) []byte {
	t.Helper()
	out, err := poolABI.Methods["slot0"].Outputs.Pack(sqrtPrice, big.NewInt(-120), uint16(1), uint16(1), uint16(1), uint8(0), true)
	if err != nil {
		t.Fatalf("pack slot0: %v", err)
	}
	return out
}

func TestFetchPoolStates(t *testing.T) {
	poolABI := mustABI(t, V3PoolABI)
	slot0 := poolABI.Methods["slot0"]
	liquidity := poolABI.Methods["liquidity"]

	sqrtOne, _ := new(big.Int).SetString("1461446703485210103287273052203988822378723970341", 10)
	liqOne, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)

	caller := newFakeCaller()
	caller.handle(poolOne, slot0, func([]byte) ([]byte, error) { return packSlot0(t, poolABI, sqrtOne), nil })
	caller.handle(poolOne, liquidity, func([]byte) ([]byte, error) { return liquidity.Outputs.Pack(liqOne) })
	caller.handle(poolTwo, slot0, func([]byte) ([]byte, error) { return packSlot0(t, poolABI, big.NewInt(1)), nil })

	reader := NewStateReader(caller, zaptest.NewLogger(t))
	results, err := reader.FetchPoolStates(context.Background(), []common.Address{poolOne, poolTwo, poolOne})
	if err != nil {
		t.Fatalf("fetch pool states: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected duplicates removed, got %d results", len(results))
	}
	if caller.calls != 4 {
		t.Fatalf("expected 4 calls, got %d", caller.calls)
	}

	first := results[0]
	if first.Pool != poolOne || first.Err != nil || first.State == nil {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if first.State.SqrtPriceX96.Cmp(sqrtOne) != 0 {
		t.Fatalf("sqrt price mismatch: %s", first.State.SqrtPriceX96)
	}
	if first.State.Liquidity.Cmp(liqOne) != 0 {
		t.Fatalf("liquidity mismatch: %s", first.State.Liquidity)
	}

	second := results[1]
	if second.Pool != poolTwo || second.Err == nil || second.State != nil {
		t.Fatalf("expected failed liquidity read for second pool: %+v", second)
	}
}

func TestVerifyTokens(t *testing.T) {
	erc20 := mustABI(t, erc20ABIInstance)
	decimals := erc20.Methods["decimals"]
	symbol := erc20.Methods["symbol"]

	register := func(caller *fakeCaller, token model.Token, onchain uint8) {
		caller.handle(token.Address, decimals, func([]byte) ([]byte, error) { return decimals.Outputs.Pack(onchain) })
		caller.handle(token.Address, symbol, func([]byte) ([]byte, error) { return symbol.Outputs.Pack(token.Symbol) })
	}

	t.Run("match", func(t *testing.T) {
		caller := newFakeCaller()
		register(caller, weth, 18)
		register(caller, usdc, 6)
		// dai has no handlers: a failed read is only a warning.
		reader := NewTokenReader(caller, zaptest.NewLogger(t))
		if err := reader.VerifyTokens(context.Background(), []model.Token{weth, usdc, dai}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		caller := newFakeCaller()
		register(caller, weth, 18)
		register(caller, usdc, 18)
		reader := NewTokenReader(caller, zaptest.NewLogger(t))
		err := reader.VerifyTokens(context.Background(), []model.Token{weth, usdc})
		if err == nil || !strings.Contains(err.Error(), "USDC configured 6 on-chain 18") {
			t.Fatalf("expected decimals mismatch, got %v", err)
		}
	})
}

func TestAsUint8(t *testing.T) {
	if v, err := asUint8(big.NewInt(18)); err != nil || v != 18 {
		t.Fatalf("unexpected result %d %v", v, err)
	}
	if _, err := asUint8(big.NewInt(256)); err == nil {
		t.Fatalf("expected overflow error")
	}
}
