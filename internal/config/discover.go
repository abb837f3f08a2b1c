package config

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// DefaultFactory is the Uniswap V3 factory address on Ethereum mainnet.
const DefaultFactory = "0x1F98431c8aD98523631AE4a59f267346ea31F984"

// DefaultFeeTiers are the V3 fee tiers in parts per million.
var DefaultFeeTiers = []string{"100", "500", "3000", "10000"}

// DiscoverConfig holds configuration for the discover command.
type DiscoverConfig struct {
	Common
	Factory        common.Address
	FeeTiers       []uint32
	VerifyDecimals bool
}

// LoadDiscover merges config file, environment variables, and flags into DiscoverConfig.
func LoadDiscover(cfgFile string, flags *pflag.FlagSet) (DiscoverConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return DiscoverConfig{}, err
	}
	v.SetDefault("factory", DefaultFactory)
	v.SetDefault("fee-tiers", DefaultFeeTiers)
	v.SetDefault("verify-decimals", true)

	shared, err := loadCommon(v)
	if err != nil {
		return DiscoverConfig{}, err
	}
	if err := shared.requireChain(); err != nil {
		return DiscoverConfig{}, err
	}

	factory := v.GetString("factory")
	if !common.IsHexAddress(factory) {
		return DiscoverConfig{}, fmt.Errorf("invalid factory address %q", factory)
	}

	fees, err := parseFeeTiers(getStringSlice(v, "fee-tiers"))
	if err != nil {
		return DiscoverConfig{}, err
	}

	return DiscoverConfig{
		Common:         shared,
		Factory:        common.HexToAddress(factory),
		FeeTiers:       fees,
		VerifyDecimals: v.GetBool("verify-decimals"),
	}, nil
}

func parseFeeTiers(items []string) ([]uint32, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one fee tier is required")
	}
	fees := make([]uint32, 0, len(items))
	seen := make(map[uint32]struct{}, len(items))
	for _, item := range items {
		fee, err := strconv.ParseUint(item, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid fee tier %q", item)
		}
		if fee == 0 || fee >= 1_000_000 {
			return nil, fmt.Errorf("fee tier %d out of range (1..999999 ppm)", fee)
		}
		if _, ok := seen[uint32(fee)]; ok {
			continue
		}
		seen[uint32(fee)] = struct{}{}
		fees = append(fees, uint32(fee))
	}
	return fees, nil
}
