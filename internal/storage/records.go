package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triarb/internal/model"
)

// SaveRoutes replaces the route set under key.
func SaveRoutes(ctx context.Context, store SetStore, key string, routes []model.TriadRoute) error {
	members := make([]string, 0, len(routes))
	for _, route := range routes {
		data, err := model.EncodeRouteRecord(route)
		if err != nil {
			return err
		}
		members = append(members, string(data))
	}
	if err := store.ReplaceSet(ctx, key, members); err != nil {
		return fmt.Errorf("replace routes %s: %w", key, err)
	}
	return nil
}

// LoadRoutes reads every route under key. Records that fail to decode are
// logged and skipped; the number skipped is returned.
func LoadRoutes(ctx context.Context, store SetStore, key string, logger *zap.Logger) ([]model.TriadRoute, int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	members, err := store.SetMembers(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("load routes %s: %w", key, err)
	}

	routes := make([]model.TriadRoute, 0, len(members))
	skipped := 0
	for _, member := range members {
		route, err := model.DecodeRouteRecord([]byte(member))
		if err != nil {
			skipped++
			logger.Warn("skipping malformed route record", zap.String("key", key), zap.Error(err))
			continue
		}
		routes = append(routes, route)
	}
	return routes, skipped, nil
}

// SavePools replaces the pool registry under key.
func SavePools(ctx context.Context, store SetStore, key string, pools []model.Pool) error {
	members := make([]string, 0, len(pools))
	for _, pool := range pools {
		data, err := model.EncodePoolRecord(pool)
		if err != nil {
			return fmt.Errorf("encode pool %s: %w", pool.Address.Hex(), err)
		}
		members = append(members, string(data))
	}
	if err := store.ReplaceSet(ctx, key, members); err != nil {
		return fmt.Errorf("replace pools %s: %w", key, err)
	}
	return nil
}

// LoadPools reads the pool registry under key, skipping malformed records.
func LoadPools(ctx context.Context, store SetStore, key string, logger *zap.Logger) ([]model.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	members, err := store.SetMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load pools %s: %w", key, err)
	}

	pools := make([]model.Pool, 0, len(members))
	for _, member := range members {
		pool, err := model.DecodePoolRecord([]byte(member))
		if err != nil {
			logger.Warn("skipping malformed pool record", zap.String("key", key), zap.Error(err))
			continue
		}
		pools = append(pools, pool)
	}
	return pools, nil
}
