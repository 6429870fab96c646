package service

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

// Paper hands means selling within this window of the buy.
const paperHandsWindow = 24 * time.Hour

// A buy counts as top-buying once the current price sits below this fraction
// of the price paid.
const topBuyerDropRatio = 0.2

// HistoricalPriceFunc looks up the USD price of a token as of a point in
// time. The coordinator supplies one backed by the oracle; it must not fail
// (unresolvable prices come back as 0).
type HistoricalPriceFunc func(token common.Address, at time.Time) float64

// SinClassifier turns one token's buy/sell history into sins. It is pure
// computation over already-fetched data and performs no I/O of its own.
type SinClassifier struct{}

func NewSinClassifier() *SinClassifier {
	return &SinClassifier{}
}

// ClassifyToken evaluates a single token's activity for one wallet. A rug
// pull supersedes the paper-hands and top-buyer checks for that token.
func (c *SinClassifier) ClassifyToken(
	wallet common.Address,
	act domain.TokenActivity,
	insight domain.TokenInsight,
	histPrice HistoricalPriceFunc,
) []domain.Sin {
	var sins []domain.Sin
	decimals := insight.Meta.Decimals

	if insight.LikelyRug && len(act.Buys) > 0 {
		total := new(big.Int)
		for _, b := range act.Buys {
			total.Add(total, b.Amount)
		}
		first := act.Buys[0]
		loss := amountUnits(total, decimals) * histPrice(act.Token, first.Timestamp)
		return append(sins, domain.Sin{
			Wallet:      wallet,
			Kind:        domain.SinRugPull,
			Severity:    domain.SeverityForLoss(loss, true),
			Token:       act.Token,
			TokenSymbol: insight.Meta.Symbol,
			BuyAmount:   total,
			LossUSD:     loss,
			BuyTime:     first.Timestamp,
			TxHash:      first.TxHash,
		})
	}

	// Paper hands: every (buy, later sell) pair inside the window that
	// realized a loss is its own sin.
	for _, buy := range act.Buys {
		for _, sell := range act.Sells {
			if sell.BlockNumber <= buy.BlockNumber {
				continue
			}
			held := sell.Timestamp.Sub(buy.Timestamp)
			if held < 0 || held >= paperHandsWindow {
				continue
			}
			buyValue := amountUnits(buy.Amount, decimals) * histPrice(act.Token, buy.Timestamp)
			sellValue := amountUnits(sell.Amount, decimals) * histPrice(act.Token, sell.Timestamp)
			loss := buyValue - sellValue
			if loss <= 0 {
				continue
			}
			sins = append(sins, domain.Sin{
				Wallet:      wallet,
				Kind:        domain.SinPaperHands,
				Severity:    domain.SeverityForLoss(loss, false),
				Token:       act.Token,
				TokenSymbol: insight.Meta.Symbol,
				BuyAmount:   buy.Amount,
				SellAmount:  sell.Amount,
				LossUSD:     loss,
				BuyTime:     buy.Timestamp,
				SellTime:    sell.Timestamp,
				TxHash:      sell.TxHash,
			})
		}
	}

	// Top buyer: the buy is still held and the market has fallen below 20%
	// of the entry price; the loss is unrealized.
	for _, buy := range act.Buys {
		buyPrice := histPrice(act.Token, buy.Timestamp)
		if insight.CurrentPrice <= 0 || buyPrice <= 0 {
			continue
		}
		if insight.CurrentPrice >= buyPrice*topBuyerDropRatio {
			continue
		}
		loss := amountUnits(buy.Amount, decimals) * (buyPrice - insight.CurrentPrice)
		sins = append(sins, domain.Sin{
			Wallet:      wallet,
			Kind:        domain.SinTopBuyer,
			Severity:    domain.SeverityForLoss(loss, false),
			Token:       act.Token,
			TokenSymbol: insight.Meta.Symbol,
			BuyAmount:   buy.Amount,
			LossUSD:     loss,
			BuyTime:     buy.Timestamp,
			TxHash:      buy.TxHash,
		})
	}

	return sins
}

// TotalLoss sums all sins' losses.
func TotalLoss(sins []domain.Sin) float64 {
	var total float64
	for _, s := range sins {
		total += s.LossUSD
	}
	return total
}

// PrimarySin picks the single kind that best represents the wallet. Rug
// pulls dominate everything; repeated (>2) paper-hands or top-buyer behavior
// comes next; fomo_degen is the catch-all, including for a clean wallet.
func PrimarySin(sins []domain.Sin) domain.SinKind {
	counts := map[domain.SinKind]int{}
	for _, s := range sins {
		counts[s.Kind]++
	}
	switch {
	case counts[domain.SinRugPull] > 0:
		return domain.SinRugPull
	case counts[domain.SinPaperHands] > 2:
		return domain.SinPaperHands
	case counts[domain.SinTopBuyer] > 2:
		return domain.SinTopBuyer
	default:
		return domain.SinFomoDegen
	}
}

// amountUnits converts a raw token amount to whole units using the token's
// decimal precision.
func amountUnits(amount *big.Int, decimals uint8) float64 {
	if amount == nil || amount.Sign() == 0 {
		return 0
	}
	scale := new(big.Float).SetFloat64(math.Pow10(int(decimals)))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return f
}
