package model

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func testRoute() TriadRoute {
	return TriadRoute{Legs: [LegsPerRoute]RouteLeg{
		{Pool: common.HexToAddress("0x01"), TokenIn: "WETH", TokenOut: "USDC", Fee: 500, Token0: "USDC", Token1: "WETH"},
		{Pool: common.HexToAddress("0x02"), TokenIn: "USDC", TokenOut: "DAI", Fee: 100, Token0: "DAI", Token1: "USDC"},
		{Pool: common.HexToAddress("0x03"), TokenIn: "DAI", TokenOut: "WETH", Fee: 3000, Token0: "DAI", Token1: "WETH"},
	}}
}

func TestTriadRouteValidate(t *testing.T) {
	route := testRoute()
	if err := route.Validate(); err != nil {
		t.Fatalf("valid route rejected: %v", err)
	}
	if route.Description() != "WETH→USDC→DAI→WETH" {
		t.Fatalf("description %s", route.Description())
	}

	tests := []struct {
		name   string
		mutate func(r *TriadRoute)
	}{
		{"broken closure", func(r *TriadRoute) { r.Legs[2].TokenOut = "USDC"; r.Legs[2].Token1 = "USDC" }},
		{"token not in pool", func(r *TriadRoute) { r.Legs[1].TokenOut = "WBTC" }},
		{"same in and out", func(r *TriadRoute) { r.Legs[0].TokenOut = "WETH" }},
		{"zero pool", func(r *TriadRoute) { r.Legs[1].Pool = common.Address{} }},
		{"chain mismatch", func(r *TriadRoute) {
			r.Legs[1] = RouteLeg{Pool: common.HexToAddress("0x02"), TokenIn: "DAI", TokenOut: "USDC", Fee: 100, Token0: "DAI", Token1: "USDC"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRoute()
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestRouteRecordRoundTrip(t *testing.T) {
	route := testRoute()
	data, err := EncodeRouteRecord(route)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"version":1`) {
		t.Fatalf("record missing version: %s", data)
	}
	decoded, err := DecodeRouteRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != route {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, route)
	}
}

func TestDecodeRouteRecordRejectsMalformed(t *testing.T) {
	leg := `{"pool":"0x0000000000000000000000000000000000000001","token_in":"WETH","token_out":"USDC","fee":500,"token0":"USDC","token1":"WETH"}`
	tests := map[string]string{
		"not json":      `{`,
		"wrong version": `{"version":2,"legs":[]}`,
		"two legs":      `{"version":1,"legs":[` + leg + `,` + leg + `]}`,
		"bad address":   `{"version":1,"legs":[{"pool":"nope","token_in":"WETH","token_out":"USDC","fee":500,"token0":"USDC","token1":"WETH"},` + leg + `,` + leg + `]}`,
		"not closed":    `{"version":1,"legs":[` + leg + `,` + leg + `,` + leg + `]}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeRouteRecord([]byte(input)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestDistinctPools(t *testing.T) {
	a := testRoute()
	b := testRoute()
	b.Legs[0].Pool = common.HexToAddress("0x04")

	pools := DistinctPools([]TriadRoute{a, b})
	want := []common.Address{
		common.HexToAddress("0x01"),
		common.HexToAddress("0x02"),
		common.HexToAddress("0x03"),
		common.HexToAddress("0x04"),
	}
	if len(pools) != len(want) {
		t.Fatalf("got %d pools, want %d", len(pools), len(want))
	}
	for i := range want {
		if pools[i] != want[i] {
			t.Fatalf("pool %d: %s != %s", i, pools[i].Hex(), want[i].Hex())
		}
	}
}
