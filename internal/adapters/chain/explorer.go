package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog/log"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

const (
	// Most recent transactions fetched per wallet.
	defaultTxPageSize = 1000

	explorerTimeout = 5 * time.Second
)

// 4-byte selectors whose calldata carries a token amount in a known slot.
var (
	selectorTransfer     = [4]byte{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
	selectorTransferFrom = [4]byte{0x23, 0xb8, 0x72, 0xdd} // transferFrom(address,address,uint256)
)

// ExplorerClient fetches a wallet's transaction list from an
// Etherscan-compatible explorer API. This is the fast primary path, roughly
// 50x quicker than scanning the ledger directly.
type ExplorerClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewExplorerClient(baseURL, apiKey string) *ExplorerClient {
	return &ExplorerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: explorerTimeout},
	}
}

type explorerTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	Input           string `json:"input"`
}

// WalletTransfers returns the wallet's recent token transfers partitioned
// into buys and sells. An explicit "No transactions found" from the explorer
// is a valid empty result, not an error.
func (c *ExplorerClient) WalletTransfers(ctx context.Context, wallet common.Address) (*domain.TransferSet, error) {
	url := fmt.Sprintf("%s?module=account&action=txlist&address=%s&startblock=0&endblock=99999999&page=1&offset=%d&sort=desc",
		c.baseURL, wallet.Hex(), defaultTxPageSize)
	if c.apiKey != "" {
		url += "&apikey=" + c.apiKey
	}

	body, err := c.getJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}
	if envelope.Status != "1" {
		if strings.EqualFold(envelope.Message, "No transactions found") {
			// New or unused wallet, a normal outcome.
			return &domain.TransferSet{}, nil
		}
		return nil, fmt.Errorf("explorer status %s: %s", envelope.Status, envelope.Message)
	}

	var txs []explorerTx
	if err := json.Unmarshal(envelope.Result, &txs); err != nil {
		return nil, fmt.Errorf("decode explorer result: %w", err)
	}

	set := c.partition(txs, wallet)
	log.Debug().
		Str("wallet", wallet.Hex()).
		Int("transactions", len(txs)).
		Int("buys", len(set.Buys)).
		Int("sells", len(set.Sells)).
		Msg("explorer history fetched")
	return set, nil
}

// partition keeps transactions carrying call-data (the heuristic for token
// transfers) and splits them by direction relative to the wallet.
func (c *ExplorerClient) partition(txs []explorerTx, wallet common.Address) *domain.TransferSet {
	set := &domain.TransferSet{}
	me := strings.ToLower(wallet.Hex())

	for _, tx := range txs {
		if len(tx.Input) <= 10 {
			continue // plain value transfer, not a token movement
		}

		token := tx.ContractAddress
		if token == "" {
			token = tx.To
		}
		ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
		blockNum, _ := strconv.ParseUint(tx.BlockNumber, 10, 64)

		rec := domain.TransferRecord{
			Token:       common.HexToAddress(token),
			From:        common.HexToAddress(tx.From),
			To:          common.HexToAddress(tx.To),
			Amount:      calldataAmount(tx.Input),
			BlockNumber: blockNum,
			Timestamp:   time.Unix(ts, 0).UTC(),
			TxHash:      common.HexToHash(tx.Hash),
		}

		switch {
		case strings.ToLower(tx.To) == me:
			set.Buys = append(set.Buys, rec)
		case strings.ToLower(tx.From) == me:
			set.Sells = append(set.Sells, rec)
		}
	}
	return set
}

// calldataAmount extracts the token amount from transfer-style calldata.
// Unknown selectors yield zero rather than an error.
func calldataAmount(input string) *big.Int {
	data, err := hexutil.Decode(input)
	if err != nil || len(data) < 4 {
		return new(big.Int)
	}
	sig := [4]byte(data[:4])
	switch {
	case sig == selectorTransfer && len(data) >= 68:
		return new(big.Int).SetBytes(data[36:68])
	case sig == selectorTransferFrom && len(data) >= 100:
		return new(big.Int).SetBytes(data[68:100])
	default:
		return new(big.Int)
	}
}

func (c *ExplorerClient) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB max
}
