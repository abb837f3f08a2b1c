package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenLow  = Token{Symbol: "USDC", Address: common.HexToAddress("0x1000000000000000000000000000000000000001"), Decimals: 6}
	tokenHigh = Token{Symbol: "WETH", Address: common.HexToAddress("0xf000000000000000000000000000000000000002"), Decimals: 18}
)

func TestNewPoolCanonicalOrder(t *testing.T) {
	poolAddr := common.HexToAddress("0x9999999999999999999999999999999999999999")

	forward, err := NewPool(poolAddr, tokenLow, tokenHigh, 500)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	reverse, err := NewPool(poolAddr, tokenHigh, tokenLow, 500)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	if forward != reverse {
		t.Fatalf("canonicalization depends on query order: %+v != %+v", forward, reverse)
	}
	if forward.Token0.Symbol != "USDC" || forward.Token1.Symbol != "WETH" {
		t.Fatalf("unexpected order: token0=%s token1=%s", forward.Token0.Symbol, forward.Token1.Symbol)
	}
}

func TestAddressLessIsUnsigned(t *testing.T) {
	// 0x80.. would sort below 0x7f.. under a signed comparison.
	a := common.HexToAddress("0x7fffffffffffffffffffffffffffffffffffffff")
	b := common.HexToAddress("0x8000000000000000000000000000000000000000")
	if !AddressLess(a, b) || AddressLess(b, a) {
		t.Fatalf("address comparison is not unsigned")
	}
}

func TestNewPoolRejectsSameToken(t *testing.T) {
	if _, err := NewPool(common.Address{1}, tokenLow, tokenLow, 500); err == nil {
		t.Fatalf("expected error for identical tokens")
	}
}

func TestPairKeySymmetric(t *testing.T) {
	if NewPairKey(tokenLow.Address, tokenHigh.Address) != NewPairKey(tokenHigh.Address, tokenLow.Address) {
		t.Fatalf("pair key depends on argument order")
	}
	key := NewPairKey(tokenHigh.Address, tokenLow.Address)
	want := "0x1000000000000000000000000000000000000001:0xf000000000000000000000000000000000000002"
	if key.String() != want {
		t.Fatalf("pair key string %s != %s", key.String(), want)
	}
}

func TestPoolRecordRoundTrip(t *testing.T) {
	pool, err := NewPool(common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"), tokenHigh, tokenLow, 500)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	data, err := EncodePoolRecord(pool)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodePoolRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != pool {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, pool)
	}
}

func TestDecodePoolRecordRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":      `[`,
		"wrong version": `{"version":7}`,
		"bad address":   `{"version":1,"address":"0x12","token0":{"symbol":"USDC","address":"0x1000000000000000000000000000000000000001","decimals":6},"token1":{"symbol":"WETH","address":"0xf000000000000000000000000000000000000002","decimals":18},"fee":500}`,
		"same token":    `{"version":1,"address":"0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640","token0":{"symbol":"USDC","address":"0x1000000000000000000000000000000000000001","decimals":6},"token1":{"symbol":"USDC","address":"0x1000000000000000000000000000000000000001","decimals":6},"fee":500}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodePoolRecord([]byte(input)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}
