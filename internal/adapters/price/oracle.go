package price

import (
	"context"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

// A price below this is treated as a collapsed (rugged) token.
const rugPriceThreshold = 1e-6

// Resolver is one step of the price cascade. A step signals "no answer" by
// returning 0 with a nil error; errors are logged and fall through the same
// way.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, token common.Address, symbol string) (float64, error)
}

// Oracle resolves token prices by walking an ordered resolver chain and
// falling back to the deterministic simulator, writing every result through
// the shared cache. Because the simulator is pure computation the oracle as a
// whole never fails.
type Oracle struct {
	cache     domain.PriceCache
	resolvers []Resolver
	sim       *MockSource
	nowFn     func() time.Time

	// SimulatedHistory answers historical queries from the simulator keyed by
	// the requested timestamp. When false, historical queries reuse the
	// current-price cascade: there is no real historical feed to consult.
	SimulatedHistory bool
}

func NewOracle(cache domain.PriceCache, sim *MockSource, resolvers ...Resolver) *Oracle {
	if sim == nil {
		sim = NewMockSource(nil)
	}
	return &Oracle{
		cache:     cache,
		resolvers: resolvers,
		sim:       sim,
		nowFn:     time.Now,
	}
}

// CurrentPrice returns the best-effort current USD price for a token. A
// request within the cache TTL short-circuits the cascade entirely.
func (o *Oracle) CurrentPrice(ctx context.Context, token common.Address, symbol string) (float64, error) {
	if p, ok := o.cache.Get(ctx, token); ok {
		return p, nil
	}

	price := -1.0
	for _, r := range o.resolvers {
		p, err := r.Resolve(ctx, token, symbol)
		if err != nil {
			log.Debug().Err(err).Str("source", r.Name()).Str("token", token.Hex()).
				Msg("price source failed, trying next")
			continue
		}
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		price = p
		break
	}
	if price < 0 {
		// Terminal step: the simulator always answers, possibly with 0 for a
		// scripted rug.
		price = o.sim.PriceAt(token, o.nowFn())
	}

	o.cache.Set(ctx, token, price)
	return price, nil
}

// HistoricalPrice returns the best-effort USD price as of the given time.
func (o *Oracle) HistoricalPrice(ctx context.Context, token common.Address, symbol string, at time.Time) (float64, error) {
	if o.SimulatedHistory {
		return o.sim.PriceAt(token, at), nil
	}
	return o.CurrentPrice(ctx, token, symbol)
}

// LikelyRugPull reports whether the token's current price has collapsed to
// near zero. This is a price-only proxy.
// TODO: also inspect DEX pair reserves; drained liquidity with a stale quote
// currently goes undetected.
func (o *Oracle) LikelyRugPull(ctx context.Context, token common.Address) (bool, error) {
	p, err := o.CurrentPrice(ctx, token, "")
	if err != nil {
		return false, err
	}
	return p < rugPriceThreshold, nil
}
