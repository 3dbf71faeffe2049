package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// usdtDecimalsByNetwork maps a network name to the USDT contract's decimal
// shift there. BSC's bridged USDT uses 18; most other deployments use 6.
var usdtDecimalsByNetwork = map[string]int{
	"bsc":      18,
	"ethereum": 6,
	"polygon":  6,
	"tron":     6,
}

const defaultUSDTDecimals = 6

// EthereumReader reads settlement evidence over an EVM JSON-RPC endpoint.
type EthereumReader struct {
	client   *ethclient.Client
	decimals int
}

// Dial connects to the RPC endpoint and fixes the token decimal shift for
// the given network.
func Dial(ctx context.Context, rpcURL, network string) (*EthereumReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	decimals, ok := usdtDecimalsByNetwork[strings.ToLower(network)]
	if !ok {
		decimals = defaultUSDTDecimals
	}
	return &EthereumReader{client: client, decimals: decimals}, nil
}

func (r *EthereumReader) TransactionReceipt(ctx context.Context, txHash string) (ports.ChainReceipt, error) {
	receipt, err := r.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return ports.ChainReceipt{}, domain.ErrTransactionNotFound
	}
	if err != nil {
		return ports.ChainReceipt{}, fmt.Errorf("fetch transaction receipt: %w", err)
	}

	logs := make([]ports.ChainLog, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		topics := make([]string, 0, len(l.Topics))
		for _, t := range l.Topics {
			topics = append(topics, strings.ToLower(t.Hex()))
		}
		logs = append(logs, ports.ChainLog{
			Address: strings.ToLower(l.Address.Hex()),
			Topics:  topics,
			Data:    l.Data,
		})
	}
	return ports.ChainReceipt{
		TxHash: strings.ToLower(receipt.TxHash.Hex()),
		Status: receipt.Status,
		Logs:   logs,
	}, nil
}

func (r *EthereumReader) TokenDecimals() int {
	return r.decimals
}

// Close releases the underlying RPC connection.
func (r *EthereumReader) Close() {
	r.client.Close()
}
