package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chainconfessional/sinscan/internal/adapters/chain"
	"github.com/chainconfessional/sinscan/internal/adapters/price"
	"github.com/chainconfessional/sinscan/internal/config"
	"github.com/chainconfessional/sinscan/internal/core/domain"
	"github.com/chainconfessional/sinscan/internal/core/service"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sinscan <wallet-address> [<wallet-address> ...]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ec, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		log.Fatal().Err(err).Str("rpc", cfg.RPCURL).Msg("ledger dial failed")
	}
	defer ec.Close()

	var cache domain.PriceCache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		cache = price.NewRedisCache(redis.NewClient(opt), cfg.PriceCacheTTL)
	} else {
		cache = price.NewMemoryCache(cfg.PriceCacheTTL)
	}

	sim := price.NewMockSource(price.DefaultSimTokens())
	var resolvers []price.Resolver
	if !cfg.MockPrices {
		pyth, err := price.NewPythResolver(ec, common.HexToAddress(cfg.PythAddress), price.DefaultPythFeeds)
		if err != nil {
			log.Fatal().Err(err).Msg("pyth resolver init failed")
		}
		resolvers = append(resolvers, pyth)

		if cfg.DexRouter != "" && cfg.WrappedNative != "" {
			dex, err := price.NewDexResolver(ec, common.HexToAddress(cfg.DexRouter), common.HexToAddress(cfg.WrappedNative))
			if err != nil {
				log.Fatal().Err(err).Msg("dex resolver init failed")
			}
			resolvers = append(resolvers, dex)
		}
	}
	oracle := price.NewOracle(cache, sim, resolvers...)
	oracle.SimulatedHistory = cfg.MockPrices

	meta, err := chain.NewERC20Metadata(ec)
	if err != nil {
		log.Fatal().Err(err).Msg("metadata client init failed")
	}
	fetcher := chain.NewFetcher(
		chain.NewExplorerClient(cfg.ExplorerAPIURL, cfg.ExplorerAPIKey),
		chain.NewLedgerScanner(ec, cfg.ScanBlocksBack),
	)

	scanner := service.NewScanService(fetcher, meta, oracle, service.NewSinClassifier(), nil)

	ctx := context.Background()
	exitCode := 0
	for _, addr := range os.Args[1:] {
		result, err := scanner.ScanWallet(ctx, addr)
		if err != nil {
			log.Error().Err(err).Str("wallet", addr).Msg("failed to scan wallet")
			exitCode = 1
			continue
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	}
	os.Exit(exitCode)
}
