package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"triarb/internal/model"
)

// Store kinds.
const (
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

const envPrefix = "TRIARB"

// DefaultRetryBackoff is the initial delay before retrying a failed batch.
const DefaultRetryBackoff = 500 * time.Millisecond

// Common holds settings shared by every command.
type Common struct {
	RPCURL       string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    float64
	Store        StoreConfig
	RoutesKey    string
	PoolsKey     string
	Tokens       []model.Token
	LogLevel     string
	MetricsFile  string
}

// StoreConfig selects the route store backend.
type StoreConfig struct {
	Kind  string
	PGDSN string
	Path  string
}

// newViper merges defaults, config file, environment variables and flags.
func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("batch-size", 500)
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", DefaultRetryBackoff)
	v.SetDefault("rpc-rate-limit", 0)
	v.SetDefault("store", StorePostgres)
	v.SetDefault("store-path", "./data")
	v.SetDefault("routes-key", "triarb:routes")
	v.SetDefault("pools-key", "triarb:pools")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func loadCommon(v *viper.Viper) (Common, error) {
	cfg := Common{
		RPCURL:       strings.TrimSpace(v.GetString("rpc")),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		RateLimit:    v.GetFloat64("rpc-rate-limit"),
		Store: StoreConfig{
			Kind:  strings.ToLower(strings.TrimSpace(v.GetString("store"))),
			PGDSN: v.GetString("pg-dsn"),
			Path:  v.GetString("store-path"),
		},
		RoutesKey:    v.GetString("routes-key"),
		PoolsKey:     v.GetString("pools-key"),
		LogLevel:     v.GetString("log-level"),
		MetricsFile:  v.GetString("metrics-file"),
	}

	if cfg.BatchSize <= 0 {
		return Common{}, fmt.Errorf("batch-size must be greater than zero")
	}
	if cfg.MaxRetries < 0 {
		return Common{}, fmt.Errorf("max-retries must not be negative")
	}
	if cfg.RateLimit < 0 {
		return Common{}, fmt.Errorf("rpc-rate-limit must not be negative")
	}
	if err := cfg.Store.validate(); err != nil {
		return Common{}, err
	}
	if cfg.RoutesKey == "" || cfg.PoolsKey == "" {
		return Common{}, fmt.Errorf("routes-key and pools-key are required")
	}
	if cfg.RoutesKey == cfg.PoolsKey {
		return Common{}, fmt.Errorf("routes-key and pools-key must differ")
	}

	tokens, err := getTokens(v, "tokens")
	if err != nil {
		return Common{}, err
	}
	cfg.Tokens = tokens

	return cfg, nil
}

// requireChain checks the settings needed by commands that talk to the chain.
func (c Common) requireChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	return validateTokens(c.Tokens)
}

func (s StoreConfig) validate() error {
	switch s.Kind {
	case StorePostgres:
		if s.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	case StoreFile:
		if s.Path == "" {
			return fmt.Errorf("store-path is required for the file store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want postgres, file or memory)", s.Kind)
	}
	return nil
}

// LoadRoutes loads settings for the routes command.
func LoadRoutes(cfgFile string, flags *pflag.FlagSet) (Common, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Common{}, err
	}
	return loadCommon(v)
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
