package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

const erc20ABIJSON = `[
	{
		"name": "symbol",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view"
	},
	{
		"name": "name",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view"
	},
	{
		"name": "decimals",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view"
	},
	{
		"name": "balanceOf",
		"type": "function",
		"inputs": [{"name": "owner", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	}
]`

// contractCaller is the slice of ethclient needed for read-only views.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ERC20Metadata resolves token symbol, name, decimals and balances with
// direct contract reads.
type ERC20Metadata struct {
	caller contractCaller
	abi    abi.ABI
}

func NewERC20Metadata(caller contractCaller) (*ERC20Metadata, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &ERC20Metadata{caller: caller, abi: parsed}, nil
}

// TokenMetadata fetches symbol, name and decimals. Symbol and decimals are
// required; a missing name is tolerated since many tokens skip it.
func (m *ERC20Metadata) TokenMetadata(ctx context.Context, token common.Address) (*domain.TokenMetadata, error) {
	var meta domain.TokenMetadata

	if err := m.view(ctx, token, "symbol", nil, &meta.Symbol); err != nil {
		return nil, fmt.Errorf("read symbol of %s: %w", token.Hex(), err)
	}
	if err := m.view(ctx, token, "decimals", nil, &meta.Decimals); err != nil {
		return nil, fmt.Errorf("read decimals of %s: %w", token.Hex(), err)
	}
	if err := m.view(ctx, token, "name", nil, &meta.Name); err != nil {
		log.Debug().Err(err).Str("token", token.Hex()).Msg("token name unavailable")
	}

	return &meta, nil
}

// TokenBalance fetches a wallet's current balance of a token.
func (m *ERC20Metadata) TokenBalance(ctx context.Context, wallet, token common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := m.view(ctx, token, "balanceOf", []interface{}{wallet}, &balance); err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", token.Hex(), err)
	}
	return balance, nil
}

// view performs one read-only contract call and unpacks the single result
// into out.
func (m *ERC20Metadata) view(ctx context.Context, contract common.Address, method string, args []interface{}, out interface{}) error {
	input, err := m.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return err
	}
	return m.abi.UnpackIntoInterface(out, method, raw)
}
