package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransferFetcher retrieves a wallet's recent token transfers. Implementations
// are expected to absorb transient upstream failures internally (degrading to
// partial or empty results) and return an error only when the ledger itself is
// unreachable.
type TransferFetcher interface {
	FetchTransfers(ctx context.Context, wallet common.Address) (*TransferSet, error)
}

// MetadataService resolves token-level chain data.
type MetadataService interface {
	// TokenMetadata fetches symbol, name and decimals for a token.
	TokenMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error)

	// TokenBalance fetches a wallet's current balance of a token.
	TokenBalance(ctx context.Context, wallet, token common.Address) (*big.Int, error)
}

// PriceService resolves best-effort USD prices for tokens.
type PriceService interface {
	// CurrentPrice returns the current USD price. The symbol is optional and
	// lets implementations consult symbol-keyed feeds for major assets.
	CurrentPrice(ctx context.Context, token common.Address, symbol string) (float64, error)

	// HistoricalPrice returns the best-effort USD price as of the given time.
	HistoricalPrice(ctx context.Context, token common.Address, symbol string, at time.Time) (float64, error)

	// LikelyRugPull reports whether the token's current price has collapsed
	// to near zero.
	LikelyRugPull(ctx context.Context, token common.Address) (bool, error)
}

// PriceCache is the shared token->price cache consulted before the oracle
// cascade runs. Implementations must be safe for concurrent use; a stale or
// duplicate write within the TTL window is harmless.
type PriceCache interface {
	Get(ctx context.Context, token common.Address) (float64, bool)
	Set(ctx context.Context, token common.Address, price float64)
}

// ScanStore persists a finished scan. Persistence mechanics live outside this
// core; the coordinator invokes the store best-effort after classification.
type ScanStore interface {
	SaveScanResult(ctx context.Context, result *ScanResult) error
}
