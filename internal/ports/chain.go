package ports

import "context"

// ChainLog is one event log from a transaction receipt. Topics and the
// address are lowercase 0x-prefixed hex; Data is the raw log payload.
type ChainLog struct {
	Address string
	Topics  []string
	Data    []byte
}

// ChainReceipt is the subset of an EVM transaction receipt the USDT
// verifier needs. Status follows the chain convention: 1 success, 0 failure.
type ChainReceipt struct {
	TxHash string
	Status uint64
	Logs   []ChainLog
}

// ChainReader fetches settlement evidence from the chain RPC provider.
// Implementations must bound each call with a timeout so a slow provider
// cannot pin a webhook request.
type ChainReader interface {
	// TransactionReceipt returns domain.ErrTransactionNotFound when the
	// hash is unknown to the provider. Verification fails closed on it.
	TransactionReceipt(ctx context.Context, txHash string) (ChainReceipt, error)
	// TokenDecimals is the configured stablecoin's decimal shift on the
	// network this reader is connected to. USDT differs per network, so
	// this is a per-network constant, never a global one.
	TokenDecimals() int
}
