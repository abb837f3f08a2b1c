package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"triarb/internal/model"
)

const minTokens = 3

// getTokens reads the token universe. The config file form is a list of
// {symbol, address, decimals} maps; the environment and flag form is a
// comma-separated list of symbol:address:decimals entries.
func getTokens(v *viper.Viper, key string) ([]model.Token, error) {
	if !v.IsSet(key) {
		return nil, nil
	}

	switch typed := v.Get(key).(type) {
	case []interface{}:
		tokens := make([]model.Token, 0, len(typed))
		for i, item := range typed {
			switch entry := item.(type) {
			case map[string]interface{}:
				token, err := tokenFromMap(entry)
				if err != nil {
					return nil, fmt.Errorf("tokens[%d]: %w", i, err)
				}
				tokens = append(tokens, token)
			case string:
				token, err := parseTokenSpec(entry)
				if err != nil {
					return nil, fmt.Errorf("tokens[%d]: %w", i, err)
				}
				tokens = append(tokens, token)
			default:
				return nil, fmt.Errorf("tokens[%d]: unsupported entry type %T", i, item)
			}
		}
		return tokens, nil
	case []string:
		return parseTokenSpecs(cleanStrings(typed))
	case string:
		return parseTokenSpecs(splitAndClean(typed))
	default:
		return nil, fmt.Errorf("tokens: unsupported value type %T", typed)
	}
}

func parseTokenSpecs(specs []string) ([]model.Token, error) {
	tokens := make([]model.Token, 0, len(specs))
	for _, spec := range specs {
		token, err := parseTokenSpec(spec)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// parseTokenSpec parses "WETH:0xC02a...:18".
func parseTokenSpec(spec string) (model.Token, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) != 3 {
		return model.Token{}, fmt.Errorf("invalid token %q (want symbol:address:decimals)", spec)
	}
	return newToken(parts[0], parts[1], parts[2])
}

func tokenFromMap(entry map[string]interface{}) (model.Token, error) {
	get := func(name string) string {
		if val, ok := entry[name]; ok && val != nil {
			return fmt.Sprintf("%v", val)
		}
		return ""
	}
	return newToken(get("symbol"), get("address"), get("decimals"))
}

func newToken(symbol, address, decimals string) (model.Token, error) {
	symbol = strings.TrimSpace(symbol)
	address = strings.TrimSpace(address)
	decimals = strings.TrimSpace(decimals)

	if symbol == "" {
		return model.Token{}, fmt.Errorf("token symbol is required")
	}
	if !common.IsHexAddress(address) {
		return model.Token{}, fmt.Errorf("token %s: invalid address %q", symbol, address)
	}
	dec, err := strconv.ParseUint(decimals, 10, 8)
	if err != nil {
		return model.Token{}, fmt.Errorf("token %s: invalid decimals %q", symbol, decimals)
	}
	return model.Token{Symbol: symbol, Address: common.HexToAddress(address), Decimals: uint8(dec)}, nil
}

func validateTokens(tokens []model.Token) error {
	if len(tokens) < minTokens {
		return fmt.Errorf("at least %d tokens are required, got %d", minTokens, len(tokens))
	}
	symbols := make(map[string]struct{}, len(tokens))
	addresses := make(map[common.Address]string, len(tokens))
	for _, token := range tokens {
		if _, ok := symbols[token.Symbol]; ok {
			return fmt.Errorf("duplicate token symbol %s", token.Symbol)
		}
		symbols[token.Symbol] = struct{}{}
		if other, ok := addresses[token.Address]; ok {
			return fmt.Errorf("tokens %s and %s share address %s", other, token.Symbol, token.Address.Hex())
		}
		if token.Address == (common.Address{}) {
			return fmt.Errorf("token %s has the zero address", token.Symbol)
		}
		addresses[token.Address] = token.Symbol
	}
	return nil
}
