// Package runner wires the discovery and evaluation passes to the chain,
// the route store and run metrics.
package runner

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"triarb/internal/model"
)

// ErrNoRoutes is returned by an evaluation run when the store holds no routes.
var ErrNoRoutes = errors.New("no stored routes; run `triarb discover` first")

// TokenVerifier checks the configured token universe against the chain.
type TokenVerifier interface {
	VerifyTokens(ctx context.Context, tokens []model.Token) error
}

// StateFetcher reads live pool state in bulk.
type StateFetcher interface {
	FetchPoolStates(ctx context.Context, pools []common.Address) ([]model.PoolStateResult, error)
}
