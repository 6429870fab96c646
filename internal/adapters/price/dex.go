package price

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const routerABIJSON = `[
	{
		"name": "getAmountsOut",
		"type": "function",
		"inputs": [
			{"name": "amountIn", "type": "uint256"},
			{"name": "path", "type": "address[]"}
		],
		"outputs": [
			{"name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "view"
	}
]`

// DexResolver prices a token by quoting a 1-unit swap against the wrapped
// native asset on a Uniswap-V2 style router.
//
// The quote is taken for exactly 1e18 raw units and the wrapped native asset
// is assumed to trade at $1. Both are stated simplifications: tokens with
// fewer than 18 decimals are quoted for more than one whole token, and chains
// whose native asset is not a stable are mispriced by its USD rate.
type DexResolver struct {
	caller        contractCaller
	router        common.Address
	wrappedNative common.Address
	abi           abi.ABI
}

func NewDexResolver(caller contractCaller, router, wrappedNative common.Address) (*DexResolver, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return &DexResolver{caller: caller, router: router, wrappedNative: wrappedNative, abi: parsed}, nil
}

func (r *DexResolver) Name() string { return "dex" }

func (r *DexResolver) Resolve(ctx context.Context, token common.Address, _ string) (float64, error) {
	amountIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	path := []common.Address{token, r.wrappedNative}

	input, err := r.abi.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return 0, fmt.Errorf("pack getAmountsOut: %w", err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.router, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("call getAmountsOut: %w", err)
	}

	vals, err := r.abi.Unpack("getAmountsOut", out)
	if err != nil {
		return 0, fmt.Errorf("unpack getAmountsOut: %w", err)
	}
	amounts, ok := vals[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return 0, fmt.Errorf("unexpected getAmountsOut return shape")
	}

	price := weiToFloat(amounts[len(amounts)-1])
	if price <= 0 {
		return 0, nil
	}
	return price, nil
}

func weiToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), big.NewFloat(1e18)).Float64()
	return f
}
