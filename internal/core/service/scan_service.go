package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

// ErrInvalidAddress is returned before any I/O when the input is not a hex
// wallet address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Tokens are independent, so their metadata/price lookups run concurrently,
// bounded to keep pressure off the upstream endpoints.
const tokenLookupParallelism = 4

// ScanService is the single entry point of the analysis core: it fetches a
// wallet's transfers, resolves per-token market context, classifies sins and
// reduces them into a verdict.
type ScanService struct {
	fetcher    domain.TransferFetcher
	meta       domain.MetadataService
	prices     domain.PriceService
	classifier *SinClassifier
	store      domain.ScanStore // optional
}

func NewScanService(
	fetcher domain.TransferFetcher,
	meta domain.MetadataService,
	prices domain.PriceService,
	classifier *SinClassifier,
	store domain.ScanStore,
) *ScanService {
	return &ScanService{
		fetcher:    fetcher,
		meta:       meta,
		prices:     prices,
		classifier: classifier,
		store:      store,
	}
}

// ScanWallet analyzes one wallet's trading history. A wallet with no
// transfers yields an empty fomo_degen verdict without any price lookups.
func (s *ScanService) ScanWallet(ctx context.Context, address string) (*domain.ScanResult, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	wallet := common.HexToAddress(address)

	transfers, err := s.fetcher.FetchTransfers(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("fetch transfers for %s: %w", wallet.Hex(), err)
	}

	result := &domain.ScanResult{
		Wallet:     wallet,
		Sins:       []domain.Sin{},
		PrimarySin: domain.SinFomoDegen,
	}
	if transfers.Empty() {
		log.Info().Str("wallet", wallet.Hex()).Msg("wallet has no transfer history")
		s.persist(ctx, result)
		return result, nil
	}

	activities := groupByToken(transfers)
	insights := make([]domain.TokenInsight, len(activities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tokenLookupParallelism)
	for i, act := range activities {
		g.Go(func() error {
			insights[i] = s.resolveInsight(gctx, act.Token)
			return nil
		})
	}
	// Insight resolution degrades per token instead of failing.
	_ = g.Wait()

	symbols := make(map[common.Address]string, len(activities))
	for i, act := range activities {
		symbols[act.Token] = insights[i].Meta.Symbol
	}
	histPrice := func(token common.Address, at time.Time) float64 {
		p, err := s.prices.HistoricalPrice(ctx, token, symbols[token], at)
		if err != nil {
			return 0
		}
		return p
	}

	for i, act := range activities {
		result.Sins = append(result.Sins, s.classifier.ClassifyToken(wallet, act, insights[i], histPrice)...)
	}
	result.TotalLoss = TotalLoss(result.Sins)
	result.PrimarySin = PrimarySin(result.Sins)

	log.Info().
		Str("wallet", wallet.Hex()).
		Int("tokens", len(activities)).
		Int("sins", len(result.Sins)).
		Float64("total_loss_usd", result.TotalLoss).
		Str("primary_sin", string(result.PrimarySin)).
		Msg("wallet scan complete")

	s.persist(ctx, result)
	return result, nil
}

// resolveInsight fetches metadata, current price and the rug signal for one
// token. Every failure degrades to a usable default.
func (s *ScanService) resolveInsight(ctx context.Context, token common.Address) domain.TokenInsight {
	insight := domain.TokenInsight{
		Meta: domain.TokenMetadata{Symbol: shortAddress(token), Decimals: 18},
	}

	if meta, err := s.meta.TokenMetadata(ctx, token); err != nil {
		log.Warn().Err(err).Str("token", token.Hex()).Msg("token metadata unavailable")
	} else {
		insight.Meta = *meta
	}

	if p, err := s.prices.CurrentPrice(ctx, token, insight.Meta.Symbol); err != nil {
		log.Warn().Err(err).Str("token", token.Hex()).Msg("current price unavailable")
	} else {
		insight.CurrentPrice = p
	}

	if rug, err := s.prices.LikelyRugPull(ctx, token); err == nil {
		insight.LikelyRug = rug
	}

	return insight
}

func (s *ScanService) persist(ctx context.Context, result *domain.ScanResult) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveScanResult(ctx, result); err != nil {
		log.Warn().Err(err).Str("wallet", result.Wallet.Hex()).Msg("scan result not persisted")
	}
}

// groupByToken buckets a transfer set per token, preserving first-appearance
// order so scans are reproducible.
func groupByToken(set *domain.TransferSet) []domain.TokenActivity {
	index := make(map[common.Address]int)
	var activities []domain.TokenActivity

	slot := func(token common.Address) int {
		if i, ok := index[token]; ok {
			return i
		}
		index[token] = len(activities)
		activities = append(activities, domain.TokenActivity{Token: token})
		return len(activities) - 1
	}

	for _, t := range set.Buys {
		i := slot(t.Token)
		activities[i].Buys = append(activities[i].Buys, t)
	}
	for _, t := range set.Sells {
		i := slot(t.Token)
		activities[i].Sells = append(activities[i].Sells, t)
	}
	return activities
}

func shortAddress(a common.Address) string {
	h := a.Hex()
	return h[:6] + ".." + h[len(h)-4:]
}
