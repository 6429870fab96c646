package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"RPC_URL", "EXPLORER_API_URL", "EXPLORER_API_KEY", "PYTH_ADDRESS",
		"DEX_ROUTER", "WRAPPED_NATIVE", "REDIS_URL", "MOCK_PRICES",
		"SCAN_BLOCKS_BACK", "PRICE_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCURL != "https://testnet-rpc.monad.xyz" {
		t.Errorf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.ExplorerAPIURL != "https://api-testnet.monadscan.com/api" {
		t.Errorf("ExplorerAPIURL = %q", cfg.ExplorerAPIURL)
	}
	if cfg.PythAddress == "" {
		t.Error("PythAddress default missing")
	}
	if cfg.MockPrices {
		t.Error("MockPrices should default to false")
	}
	if cfg.ScanBlocksBack != 100 {
		t.Errorf("ScanBlocksBack = %d, want 100", cfg.ScanBlocksBack)
	}
	if cfg.PriceCacheTTL != 5*time.Minute {
		t.Errorf("PriceCacheTTL = %v, want 5m", cfg.PriceCacheTTL)
	}
	if cfg.DexRouter != "" || cfg.WrappedNative != "" || cfg.RedisURL != "" {
		t.Error("optional endpoints should default to empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("EXPLORER_API_URL", "http://localhost:9000/api")
	t.Setenv("EXPLORER_API_KEY", "secret")
	t.Setenv("MOCK_PRICES", "true")
	t.Setenv("SCAN_BLOCKS_BACK", "250")
	t.Setenv("PRICE_CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCURL != "http://localhost:8545" {
		t.Errorf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.ExplorerAPIKey != "secret" {
		t.Errorf("ExplorerAPIKey = %q", cfg.ExplorerAPIKey)
	}
	if !cfg.MockPrices {
		t.Error("MOCK_PRICES=true not honored")
	}
	if cfg.ScanBlocksBack != 250 {
		t.Errorf("ScanBlocksBack = %d, want 250", cfg.ScanBlocksBack)
	}
	if cfg.PriceCacheTTL != 30*time.Second {
		t.Errorf("PriceCacheTTL = %v, want 30s", cfg.PriceCacheTTL)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MOCK_PRICES", "definitely")
	t.Setenv("SCAN_BLOCKS_BACK", "-5")
	t.Setenv("PRICE_CACHE_TTL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MockPrices {
		t.Error("malformed bool should fall back to the default")
	}
	if cfg.ScanBlocksBack != 100 {
		t.Errorf("ScanBlocksBack = %d, want default 100", cfg.ScanBlocksBack)
	}
	if cfg.PriceCacheTTL != 5*time.Minute {
		t.Errorf("PriceCacheTTL = %v, want default 5m", cfg.PriceCacheTTL)
	}
}
