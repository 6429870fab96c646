package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

// keccak256("Transfer(address,address,uint256)")
var transferEventTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

const (
	defaultBlocksBack = 100
	chunkSize         = 10
	chunkParallelism  = 5
	// Breather between chunk batches so the node is not hammered.
	batchDelay = 20 * time.Millisecond
)

// ethBackend is the slice of ethclient the scanner needs.
type ethBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// LedgerScanner is the slow fallback path: it queries Transfer event logs
// directly from the ledger over a bounded recent block window, in parallel
// chunks. A failing chunk degrades to an empty result; only an unresolvable
// chain head aborts the scan.
type LedgerScanner struct {
	backend    ethBackend
	blocksBack uint64
}

func NewLedgerScanner(backend ethBackend, blocksBack uint64) *LedgerScanner {
	if blocksBack == 0 {
		blocksBack = defaultBlocksBack
	}
	return &LedgerScanner{backend: backend, blocksBack: blocksBack}
}

type blockRange struct {
	from, to uint64
}

// Scan collects the wallet's incoming and outgoing Transfer logs over the
// recent block window.
func (s *LedgerScanner) Scan(ctx context.Context, wallet common.Address) (*domain.TransferSet, error) {
	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain head: %w", err)
	}
	from := uint64(0)
	if head > s.blocksBack {
		from = head - s.blocksBack
	}

	chunks := splitBlockRange(from, head, chunkSize)
	log.Debug().
		Str("wallet", wallet.Hex()).
		Uint64("from_block", from).
		Uint64("to_block", head).
		Int("chunks", len(chunks)).
		Msg("ledger fallback scan")

	walletTopic := common.BytesToHash(common.LeftPadBytes(wallet.Bytes(), 32))
	results := make([]*domain.TransferSet, len(chunks))

	for start := 0; start < len(chunks); start += chunkParallelism {
		end := min(start+chunkParallelism, len(chunks))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = s.scanChunk(gctx, chunks[i], walletTopic)
				return nil
			})
		}
		_ = g.Wait() // chunk failures already degraded to empty sets

		if end < len(chunks) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(batchDelay):
			}
		}
	}

	set := &domain.TransferSet{}
	for _, r := range results {
		if r == nil {
			continue
		}
		set.Buys = append(set.Buys, r.Buys...)
		set.Sells = append(set.Sells, r.Sells...)
	}
	s.resolveTimestamps(ctx, set)
	return set, nil
}

// scanChunk fetches transfer-in and transfer-out logs for one block range.
// Errors degrade to an empty chunk so the rest of the scan survives.
func (s *LedgerScanner) scanChunk(ctx context.Context, r blockRange, walletTopic common.Hash) *domain.TransferSet {
	set := &domain.TransferSet{}

	in, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.from),
		ToBlock:   new(big.Int).SetUint64(r.to),
		Topics:    [][]common.Hash{{transferEventTopic}, nil, {walletTopic}},
	})
	if err != nil {
		log.Warn().Err(err).Uint64("from", r.from).Uint64("to", r.to).Msg("transfer-in chunk failed")
	}
	out, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.from),
		ToBlock:   new(big.Int).SetUint64(r.to),
		Topics:    [][]common.Hash{{transferEventTopic}, {walletTopic}},
	})
	if err != nil {
		log.Warn().Err(err).Uint64("from", r.from).Uint64("to", r.to).Msg("transfer-out chunk failed")
	}

	for _, lg := range in {
		if rec, ok := parseTransferLog(lg); ok {
			set.Buys = append(set.Buys, rec)
		}
	}
	for _, lg := range out {
		if rec, ok := parseTransferLog(lg); ok {
			set.Sells = append(set.Sells, rec)
		}
	}
	return set
}

func parseTransferLog(lg types.Log) (domain.TransferRecord, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != transferEventTopic {
		return domain.TransferRecord{}, false
	}
	return domain.TransferRecord{
		Token:       lg.Address,
		From:        common.BytesToAddress(lg.Topics[1].Bytes()),
		To:          common.BytesToAddress(lg.Topics[2].Bytes()),
		Amount:      new(big.Int).SetBytes(lg.Data),
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
	}, true
}

// resolveTimestamps fills in block timestamps for the collected records,
// fetching each distinct header once. Unresolvable headers leave the zero
// time.
func (s *LedgerScanner) resolveTimestamps(ctx context.Context, set *domain.TransferSet) {
	times := make(map[uint64]time.Time)
	blockTime := func(n uint64) time.Time {
		if ts, ok := times[n]; ok {
			return ts
		}
		var ts time.Time
		header, err := s.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			log.Debug().Err(err).Uint64("block", n).Msg("block header unavailable")
		} else {
			ts = time.Unix(int64(header.Time), 0).UTC()
		}
		times[n] = ts
		return ts
	}

	for i := range set.Buys {
		set.Buys[i].Timestamp = blockTime(set.Buys[i].BlockNumber)
	}
	for i := range set.Sells {
		set.Sells[i].Timestamp = blockTime(set.Sells[i].BlockNumber)
	}
}

// splitBlockRange cuts [from, to] into inclusive sub-ranges of at most size
// blocks.
func splitBlockRange(from, to, size uint64) []blockRange {
	if to < from || size == 0 {
		return nil
	}
	var chunks []blockRange
	for start := from; start <= to; start += size {
		end := min(start+size-1, to)
		chunks = append(chunks, blockRange{from: start, to: end})
	}
	return chunks
}
