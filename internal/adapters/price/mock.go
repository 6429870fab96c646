package price

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenSim configures the simulated market behavior of one token.
type TokenSim struct {
	BasePrice  float64
	Volatility float64
	Rug        bool
	// RugAfterDays forces the price to zero once the simulated day counter
	// (whole days of the queried timestamp since the Unix epoch) passes it.
	RugAfterDays int64
}

// MockSource produces deterministic pseudo-prices from (token, timestamp).
// It is pure computation and never fails, which makes it the guaranteed
// terminal step of the oracle cascade. Tokens without an explicit TokenSim
// get a price derived by hashing the address into a $0-$10 base with an
// hourly +/-20% modulation.
type MockSource struct {
	sims map[common.Address]TokenSim
}

func NewMockSource(sims map[common.Address]TokenSim) *MockSource {
	if sims == nil {
		sims = map[common.Address]TokenSim{}
	}
	return &MockSource{sims: sims}
}

// DefaultSimTokens returns the built-in development tokens: two plain tokens
// and one scripted rug.
func DefaultSimTokens() map[common.Address]TokenSim {
	return map[common.Address]TokenSim{
		common.HexToAddress("0x1111111111111111111111111111111111111111"): {
			BasePrice:  1.0,
			Volatility: 0.3,
		},
		common.HexToAddress("0x2222222222222222222222222222222222222222"): {
			BasePrice:  0.5,
			Volatility: 0.5,
		},
		common.HexToAddress("0xDEAD000000000000000000000000000000000000"): {
			BasePrice:    2.0,
			Volatility:   0.8,
			Rug:          true,
			RugAfterDays: 7,
		},
	}
}

func (m *MockSource) Name() string { return "mock" }

// Resolve reports the simulated current price. The error is always nil.
func (m *MockSource) Resolve(_ context.Context, token common.Address, _ string) (float64, error) {
	return m.PriceAt(token, time.Now()), nil
}

// PriceAt returns the simulated price of a token as of the given time.
// Identical arguments always yield the identical price.
func (m *MockSource) PriceAt(token common.Address, at time.Time) float64 {
	addr := strings.ToLower(token.Hex())
	ms := at.UnixMilli()

	if sim, ok := m.sims[token]; ok {
		if sim.Rug && sim.RugAfterDays > 0 && ms/(1000*60*60*24) > sim.RugAfterDays {
			return 0 // rugged
		}

		h := hashString(addr + strconv.FormatInt(ms, 10))
		variation := float64(h%100) / 100
		priceVariation := (variation - 0.5) * sim.Volatility
		p := sim.BasePrice * (1 + priceVariation)
		if p < 0 {
			return 0
		}
		return p
	}

	base := float64(hashString(addr)%1000) / 100
	timeHash := hashString(addr + strconv.FormatInt(ms/(1000*60*60), 10))
	variation := float64(timeHash%40-20) / 100

	p := base * (1 + variation)
	if p < 0.001 {
		return 0.001
	}
	return p
}

// hashString is a 32-bit polynomial string hash (h = h*31 + c), absolute
// value. Stable across runs so simulated prices are repeatable.
func hashString(s string) int64 {
	var h int32
	for _, c := range s {
		h = h<<5 - h + int32(c)
	}
	if h < 0 {
		h = -h
	}
	return int64(h)
}
