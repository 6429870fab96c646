package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeBackend struct {
	head      uint64
	headErr   error
	logs      []types.Log
	failFrom  map[uint64]bool // FromBlock values whose FilterLogs call fails
	blockTime map[uint64]uint64
	headerErr error
}

func (b *fakeBackend) BlockNumber(_ context.Context) (uint64, error) {
	return b.head, b.headErr
}

func (b *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if b.failFrom[q.FromBlock.Uint64()] {
		return nil, errors.New("filter overloaded")
	}
	var out []types.Log
	for _, lg := range b.logs {
		if lg.BlockNumber < q.FromBlock.Uint64() || lg.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if topicsMatch(lg, q.Topics) {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (b *fakeBackend) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if b.headerErr != nil {
		return nil, b.headerErr
	}
	ts, ok := b.blockTime[number.Uint64()]
	if !ok {
		return nil, errors.New("unknown block")
	}
	return &types.Header{Number: number, Time: ts}, nil
}

func topicsMatch(lg types.Log, topics [][]common.Hash) bool {
	for i, want := range topics {
		if len(want) == 0 {
			continue // wildcard position
		}
		if i >= len(lg.Topics) {
			return false
		}
		hit := false
		for _, h := range want {
			if lg.Topics[i] == h {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func transferLog(token, from, to common.Address, amount int64, block uint64) types.Log {
	return types.Log{
		Address: token,
		Topics: []common.Hash{
			transferEventTopic,
			common.BytesToHash(common.LeftPadBytes(from.Bytes(), 32)),
			common.BytesToHash(common.LeftPadBytes(to.Bytes(), 32)),
		},
		Data:        common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.BytesToHash([]byte{byte(block)}),
	}
}

func TestLedgerScan(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")

	backend := &fakeBackend{
		head: 100,
		logs: []types.Log{
			transferLog(token, other, scanWallet, 1000, 85),
			transferLog(token, scanWallet, other, 400, 95),
			transferLog(token, other, other, 7, 90), // unrelated wallet
		},
		blockTime: map[uint64]uint64{85: 1700000000, 95: 1700000600},
	}

	set, err := NewLedgerScanner(backend, 20).Scan(context.Background(), scanWallet)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(set.Buys) != 1 || len(set.Sells) != 1 {
		t.Fatalf("buys/sells = %d/%d, want 1/1", len(set.Buys), len(set.Sells))
	}

	buy := set.Buys[0]
	if buy.Token != token || buy.From != other || buy.To != scanWallet {
		t.Errorf("buy parties wrong: %+v", buy)
	}
	if buy.Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("buy amount = %s, want 1000", buy.Amount)
	}
	if buy.Timestamp.Unix() != 1700000000 {
		t.Errorf("buy timestamp = %d, want 1700000000", buy.Timestamp.Unix())
	}
	if set.Sells[0].Timestamp.Unix() != 1700000600 {
		t.Errorf("sell timestamp = %d, want 1700000600", set.Sells[0].Timestamp.Unix())
	}
}

func TestLedgerScanChunkFailureDegrades(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")

	backend := &fakeBackend{
		head: 100,
		logs: []types.Log{
			transferLog(token, other, scanWallet, 1000, 85), // in the failing chunk
			transferLog(token, scanWallet, other, 400, 95),
		},
		failFrom:  map[uint64]bool{80: true},
		blockTime: map[uint64]uint64{95: 1700000600},
	}

	set, err := NewLedgerScanner(backend, 20).Scan(context.Background(), scanWallet)
	if err != nil {
		t.Fatalf("a failing chunk must not abort the scan: %v", err)
	}
	if len(set.Buys) != 0 {
		t.Errorf("buys = %d, want 0 (chunk degraded)", len(set.Buys))
	}
	if len(set.Sells) != 1 {
		t.Errorf("sells = %d, want 1", len(set.Sells))
	}
}

func TestLedgerScanHeadErrorIsFatal(t *testing.T) {
	backend := &fakeBackend{headErr: errors.New("connection refused")}
	if _, err := NewLedgerScanner(backend, 0).Scan(context.Background(), scanWallet); err == nil {
		t.Fatal("unresolvable chain head must fail the scan")
	}
}

func TestLedgerScanUnresolvableHeaderLeavesZeroTime(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	backend := &fakeBackend{
		head:      100,
		logs:      []types.Log{transferLog(token, token, scanWallet, 1, 90)},
		headerErr: errors.New("header not found"),
	}

	set, err := NewLedgerScanner(backend, 20).Scan(context.Background(), scanWallet)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(set.Buys) != 1 {
		t.Fatalf("buys = %d, want 1", len(set.Buys))
	}
	if !set.Buys[0].Timestamp.IsZero() {
		t.Errorf("timestamp = %v, want zero time", set.Buys[0].Timestamp)
	}
}

func TestParseTransferLogRejectsMalformed(t *testing.T) {
	// Only two topics: transfer without indexed recipient.
	lg := types.Log{Topics: []common.Hash{transferEventTopic, {}}}
	if _, ok := parseTransferLog(lg); ok {
		t.Error("two-topic log accepted")
	}
	lg = types.Log{Topics: []common.Hash{{0x01}, {}, {}}}
	if _, ok := parseTransferLog(lg); ok {
		t.Error("wrong event signature accepted")
	}
}

func TestSplitBlockRange(t *testing.T) {
	cases := []struct {
		name           string
		from, to, size uint64
		want           []blockRange
	}{
		{"single partial", 0, 5, 10, []blockRange{{0, 5}}},
		{"exact chunks", 0, 19, 10, []blockRange{{0, 9}, {10, 19}}},
		{"trailing partial", 80, 100, 10, []blockRange{{80, 89}, {90, 99}, {100, 100}}},
		{"single block", 7, 7, 10, []blockRange{{7, 7}}},
		{"inverted", 10, 5, 10, nil},
		{"zero size", 0, 5, 0, nil},
	}
	for _, tc := range cases {
		got := splitBlockRange(tc.from, tc.to, tc.size)
		if len(got) != len(tc.want) {
			t.Errorf("%s: %d chunks, want %d", tc.name, len(got), len(tc.want))
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: chunk %d = %+v, want %+v", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}
