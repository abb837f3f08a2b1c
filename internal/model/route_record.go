package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// RouteRecordVersion is the schema version written by EncodeRouteRecord.
const RouteRecordVersion = 1

// RouteRecord is the persisted form of a TriadRoute.
type RouteRecord struct {
	Version int         `json:"version"`
	Legs    []LegRecord `json:"legs"`
}

// LegRecord is the persisted form of a RouteLeg.
type LegRecord struct {
	Pool     string `json:"pool"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
	Fee      uint32 `json:"fee"`
	Token0   string `json:"token0"`
	Token1   string `json:"token1"`
}

// EncodeRouteRecord serializes a route as a versioned JSON record.
func EncodeRouteRecord(route TriadRoute) ([]byte, error) {
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route %s: %w", route.Description(), err)
	}
	record := RouteRecord{
		Version: RouteRecordVersion,
		Legs:    make([]LegRecord, 0, LegsPerRoute),
	}
	for _, leg := range route.Legs {
		record.Legs = append(record.Legs, LegRecord{
			Pool:     leg.Pool.Hex(),
			TokenIn:  leg.TokenIn,
			TokenOut: leg.TokenOut,
			Fee:      leg.Fee,
			Token0:   leg.Token0,
			Token1:   leg.Token1,
		})
	}
	return json.Marshal(record)
}

// DecodeRouteRecord parses and validates a persisted route.
func DecodeRouteRecord(data []byte) (TriadRoute, error) {
	var record RouteRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return TriadRoute{}, fmt.Errorf("parse route record: %w", err)
	}
	if record.Version != RouteRecordVersion {
		return TriadRoute{}, fmt.Errorf("unsupported route record version %d", record.Version)
	}
	if len(record.Legs) != LegsPerRoute {
		return TriadRoute{}, fmt.Errorf("route record has %d legs, want %d", len(record.Legs), LegsPerRoute)
	}

	var route TriadRoute
	for i, leg := range record.Legs {
		if !common.IsHexAddress(leg.Pool) {
			return TriadRoute{}, fmt.Errorf("leg %d: invalid pool address %q", i+1, leg.Pool)
		}
		route.Legs[i] = RouteLeg{
			Pool:     common.HexToAddress(leg.Pool),
			TokenIn:  leg.TokenIn,
			TokenOut: leg.TokenOut,
			Fee:      leg.Fee,
			Token0:   leg.Token0,
			Token1:   leg.Token1,
		}
	}
	if err := route.Validate(); err != nil {
		return TriadRoute{}, err
	}
	return route, nil
}

// PoolRecordVersion is the schema version written by EncodePoolRecord.
const PoolRecordVersion = 1

// PoolRecord is the persisted form of a discovered Pool.
type PoolRecord struct {
	Version int         `json:"version"`
	Address string      `json:"address"`
	Token0  TokenRecord `json:"token0"`
	Token1  TokenRecord `json:"token1"`
	Fee     uint32      `json:"fee"`
}

// TokenRecord is the persisted form of a Token.
type TokenRecord struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// EncodePoolRecord serializes a pool as a versioned JSON record.
func EncodePoolRecord(pool Pool) ([]byte, error) {
	return json.Marshal(PoolRecord{
		Version: PoolRecordVersion,
		Address: pool.Address.Hex(),
		Token0:  tokenRecord(pool.Token0),
		Token1:  tokenRecord(pool.Token1),
		Fee:     pool.Fee,
	})
}

func tokenRecord(token Token) TokenRecord {
	return TokenRecord{
		Symbol:   token.Symbol,
		Address:  token.Address.Hex(),
		Decimals: token.Decimals,
	}
}

// DecodePoolRecord parses and validates a persisted pool.
func DecodePoolRecord(data []byte) (Pool, error) {
	var record PoolRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return Pool{}, fmt.Errorf("parse pool record: %w", err)
	}
	if record.Version != PoolRecordVersion {
		return Pool{}, fmt.Errorf("unsupported pool record version %d", record.Version)
	}
	for _, addr := range []string{record.Address, record.Token0.Address, record.Token1.Address} {
		if !common.IsHexAddress(addr) {
			return Pool{}, fmt.Errorf("invalid address %q", addr)
		}
	}
	return NewPool(
		common.HexToAddress(record.Address),
		Token{Symbol: record.Token0.Symbol, Address: common.HexToAddress(record.Token0.Address), Decimals: record.Token0.Decimals},
		Token{Symbol: record.Token1.Symbol, Address: common.HexToAddress(record.Token1.Address), Decimals: record.Token1.Decimals},
		record.Fee,
	)
}
