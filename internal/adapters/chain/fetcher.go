package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

// TransferSource is the fast primary lookup (explorer API).
type TransferSource interface {
	WalletTransfers(ctx context.Context, wallet common.Address) (*domain.TransferSet, error)
}

// ChainScanner is the slow fallback lookup (direct ledger scan).
type ChainScanner interface {
	Scan(ctx context.Context, wallet common.Address) (*domain.TransferSet, error)
}

// Fetcher implements domain.TransferFetcher: explorer first, ledger scan when
// the explorer fails. Transient explorer failures never propagate to the
// caller.
type Fetcher struct {
	primary  TransferSource
	fallback ChainScanner
}

func NewFetcher(primary TransferSource, fallback ChainScanner) *Fetcher {
	return &Fetcher{primary: primary, fallback: fallback}
}

func (f *Fetcher) FetchTransfers(ctx context.Context, wallet common.Address) (*domain.TransferSet, error) {
	set, err := f.primary.WalletTransfers(ctx, wallet)
	if err == nil {
		return set, nil
	}

	log.Warn().Err(err).Str("wallet", wallet.Hex()).
		Msg("explorer lookup failed, falling back to ledger scan")
	return f.fallback.Scan(ctx, wallet)
}
