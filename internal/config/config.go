package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultFactory = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	DefaultTokenA  = "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"
	DefaultTokenB  = "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	Factory        string
	TokenA         string
	TokenB         string
	FeeTiers       []string
	Threshold      decimal.Decimal
	TradeAmount    decimal.Decimal
	CombinedFee    decimal.Decimal
	MaxSlippage    decimal.Decimal
	PairPolicy     string
	Interval       time.Duration
	CycleTimeout   time.Duration
	MaxConcurrency int
	PoolCacheSize  int
	Out            string
	PgDSN          string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MaxRetries     int
	RetryBackoff   time.Duration
	LogLevel       string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("factory", DefaultFactory)
	v.SetDefault("token-a", DefaultTokenA)
	v.SetDefault("token-b", DefaultTokenB)
	v.SetDefault("fee-tiers", []string{"500", "3000"})
	v.SetDefault("threshold", "0.0000005")
	v.SetDefault("trade-amount", "1000")
	v.SetDefault("combined-fee", "0.05")
	v.SetDefault("max-slippage", "0.01")
	v.SetDefault("pair-policy", "first-two")
	v.SetDefault("interval", 2*time.Second)
	v.SetDefault("cycle-timeout", 10*time.Second)
	v.SetDefault("max-concurrency", 4)
	v.SetDefault("pool-cache-size", 64)
	v.SetDefault("out", "./data/arbitrage_opportunities.jsonl")
	v.SetDefault("redis-db", 0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 200*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:         rpcURL(v),
		Factory:        v.GetString("factory"),
		TokenA:         v.GetString("token-a"),
		TokenB:         v.GetString("token-b"),
		FeeTiers:       getStringSlice(v, "fee-tiers"),
		PairPolicy:     v.GetString("pair-policy"),
		Interval:       v.GetDuration("interval"),
		CycleTimeout:   v.GetDuration("cycle-timeout"),
		MaxConcurrency: v.GetInt("max-concurrency"),
		PoolCacheSize:  v.GetInt("pool-cache-size"),
		Out:            v.GetString("out"),
		PgDSN:          v.GetString("pg-dsn"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		LogLevel:       v.GetString("log-level"),
	}

	var err error
	if cfg.Threshold, err = getDecimal(v, "threshold"); err != nil {
		return Config{}, err
	}
	if cfg.TradeAmount, err = getDecimal(v, "trade-amount"); err != nil {
		return Config{}, err
	}
	if cfg.CombinedFee, err = getDecimal(v, "combined-fee"); err != nil {
		return Config{}, err
	}
	if cfg.MaxSlippage, err = getDecimal(v, "max-slippage"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// rpcURL falls back to the unprefixed RPC_URL variable commonly kept in .env.
func rpcURL(v *viper.Viper) string {
	if url := v.GetString("rpc"); url != "" {
		return url
	}
	_ = v.BindEnv("rpc-url-fallback", "RPC_URL")
	return v.GetString("rpc-url-fallback")
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", key)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %s", key, raw)
	}
	return d, nil
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
