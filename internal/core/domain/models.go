package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SinKind classifies a single detected trading behavior.
type SinKind string

const (
	SinRugPull    SinKind = "rug_pull"
	SinPaperHands SinKind = "paper_hands"
	SinTopBuyer   SinKind = "top_buyer"
	SinFomoDegen  SinKind = "fomo_degen"
)

// SinSeverity ranks how damaging a sin was, derived from its USD loss.
type SinSeverity string

const (
	SeverityMinor        SinSeverity = "minor"        // loss < $100
	SeverityMortal       SinSeverity = "mortal"       // $100 - $1000
	SeverityCardinal     SinSeverity = "cardinal"     // loss >= $1000
	SeverityUnforgivable SinSeverity = "unforgivable" // rug pull
)

// SeverityForLoss maps a USD loss to its severity tier. Rug pulls are always
// unforgivable regardless of size.
func SeverityForLoss(lossUSD float64, rug bool) SinSeverity {
	if rug {
		return SeverityUnforgivable
	}
	if lossUSD < 100 {
		return SeverityMinor
	}
	if lossUSD < 1000 {
		return SeverityMortal
	}
	return SeverityCardinal
}

// TransferRecord is a single on-chain token movement touching the scanned
// wallet. Immutable once fetched.
type TransferRecord struct {
	Token       common.Address `json:"token"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Amount      *big.Int       `json:"amount"`
	BlockNumber uint64         `json:"block_number"`
	Timestamp   time.Time      `json:"timestamp"`
	TxHash      common.Hash    `json:"tx_hash"`
}

// TransferSet holds a wallet's transfers partitioned by direction: received
// ("buys") and sent ("sells").
type TransferSet struct {
	Buys  []TransferRecord
	Sells []TransferRecord
}

// Empty reports whether the set contains no transfers at all.
func (s *TransferSet) Empty() bool {
	return s == nil || (len(s.Buys) == 0 && len(s.Sells) == 0)
}

// TokenMetadata holds basic information about a token. Valid for the duration
// of one scan; callers should not cache it across scans.
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// TokenActivity groups one token's buys and sells for a single wallet.
type TokenActivity struct {
	Token common.Address
	Buys  []TransferRecord
	Sells []TransferRecord
}

// TokenInsight is the per-token market context resolved ahead of
// classification: metadata, current price and the rug-pull signal.
type TokenInsight struct {
	Meta         TokenMetadata
	CurrentPrice float64
	LikelyRug    bool
}

// Sin is one detected behavioral violation. Created once by the classifier
// and never mutated; a wallet may accumulate several sins for the same token.
type Sin struct {
	Wallet      common.Address `json:"wallet_address"`
	Kind        SinKind        `json:"sin_type"`
	Severity    SinSeverity    `json:"severity"`
	Token       common.Address `json:"token_address"`
	TokenSymbol string         `json:"token_symbol"`
	BuyAmount   *big.Int       `json:"buy_amount,omitempty"`
	SellAmount  *big.Int       `json:"sell_amount,omitempty"`
	LossUSD     float64        `json:"loss_amount_usd"`
	BuyTime     time.Time      `json:"buy_timestamp,omitempty"`
	SellTime    time.Time      `json:"sell_timestamp,omitempty"`
	TxHash      common.Hash    `json:"transaction_hash"`
}

// ScanResult is the full verdict for one wallet scan. TotalLoss is always the
// sum of the individual sins' losses, and PrimarySin is rug_pull whenever any
// rug-pull sin is present.
type ScanResult struct {
	Wallet     common.Address `json:"wallet_address"`
	Sins       []Sin          `json:"sins"`
	PrimarySin SinKind        `json:"primary_sin"`
	TotalLoss  float64        `json:"total_loss_usd"`
}
