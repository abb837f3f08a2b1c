package model

import "github.com/ethereum/go-ethereum/common"

// Token is a static token definition from configuration.
type Token struct {
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// TokenSet indexes the token universe by symbol.
type TokenSet map[string]Token

// NewTokenSet builds a TokenSet from a list of tokens.
func NewTokenSet(tokens []Token) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		set[token.Symbol] = token
	}
	return set
}
