package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application-level configuration loaded from environment
// variables.
type Config struct {
	// Ledger RPC endpoint, used by the fallback scan and contract reads.
	RPCURL string

	// Etherscan-compatible explorer API (primary transfer path).
	ExplorerAPIURL string
	ExplorerAPIKey string

	// Pyth oracle contract for major-asset prices.
	PythAddress string

	// Uniswap-V2 style router and wrapped native token for DEX quotes.
	// Both must be set for the DEX resolver to be wired.
	DexRouter     string
	WrappedNative string

	// Optional shared price cache; in-memory when empty.
	RedisURL string

	// MockPrices skips the live price sources and answers everything from
	// the deterministic simulator, including historical lookups.
	MockPrices bool

	ScanBlocksBack uint64
	PriceCacheTTL  time.Duration
}

// Load reads configuration from the environment, after sourcing an optional
// .env file. Endpoints default to the Monad testnet.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:         getenv("RPC_URL", "https://testnet-rpc.monad.xyz"),
		ExplorerAPIURL: getenv("EXPLORER_API_URL", "https://api-testnet.monadscan.com/api"),
		ExplorerAPIKey: os.Getenv("EXPLORER_API_KEY"),
		PythAddress:    getenv("PYTH_ADDRESS", "0x2880aB155794e7179c9eE2e38200202908C17B43"),
		DexRouter:      os.Getenv("DEX_ROUTER"),
		WrappedNative:  os.Getenv("WRAPPED_NATIVE"),
		RedisURL:       os.Getenv("REDIS_URL"),
		MockPrices:     getbool("MOCK_PRICES", false),
		ScanBlocksBack: getuint("SCAN_BLOCKS_BACK", 100),
		PriceCacheTTL:  getduration("PRICE_CACHE_TTL", 5*time.Minute),
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC_URL must not be empty")
	}
	if cfg.ExplorerAPIURL == "" {
		return nil, fmt.Errorf("EXPLORER_API_URL must not be empty")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getuint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
