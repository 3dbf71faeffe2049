package application

import (
	"time"

	"github.com/google/uuid"
)

// Config carries the business knobs of the settlement pipeline. Tolerances
// and the VND/USDT rate come from deployment configuration; the rate is a
// static quote, a live oracle is out of scope.
type Config struct {
	Env             string
	WorkspaceID     string
	ReceivingWallet string
	TokenAddress    string
	Network         string

	BankingTolerance float64
	USDTTolerance    float64
	VNDPerUSDT       float64

	// PendingScanLimit bounds the amount-based order matching scan for
	// blockchain payments. A miss under high pending volume is a known
	// limit, not a bug.
	PendingScanLimit int

	TreeCodeMaxAttempts int
	TreeCodeRetryBase   time.Duration

	ChainRPCTimeout   time.Duration
	SettlementLockTTL time.Duration
}

// BankingWebhookRequest is the banking partner's notification body. The
// HMAC signature travels in the X-Webhook-Signature header, not here; the
// body Signature field is informational passthrough from the provider.
type BankingWebhookRequest struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Content       string  `json:"content"`
	BankCode      string  `json:"bankCode"`
	AccountNumber string  `json:"accountNumber"`
	Timestamp     string  `json:"timestamp"`
	Signature     string  `json:"signature"`
}

// BlockchainWebhookRequest is the chain-watcher provider's notification.
// Amount is the raw integer token amount as a decimal string; its value
// depends on the network's token decimals.
type BlockchainWebhookRequest struct {
	TxHash       string `json:"txHash"`
	FromAddress  string `json:"fromAddress"`
	ToAddress    string `json:"toAddress"`
	Amount       string `json:"amount"`
	TokenAddress string `json:"tokenAddress"`
	Network      string `json:"network"`
	BlockNumber  uint64 `json:"blockNumber"`
	Timestamp    int64  `json:"timestamp"`
}

// WebhookResult is the uniform business outcome of a webhook delivery.
// Both channels report rejections here rather than through errors; only
// infrastructure faults surface as errors to the HTTP adapter.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TreeGenerationResult reports a tree-code batch. Partial failure is a
// normal outcome: Generated holds every code that succeeded and Failed
// counts the units lost after retries were exhausted.
type TreeGenerationResult struct {
	Generated []string
	Failed    int
	Success   bool
}

// ContractResult is the outcome of the contract orchestration. A stored
// artifact with a failed delivery is still a success; EmailSkipped marks
// the explicit "email disabled" deployment state.
type ContractResult struct {
	Success        bool     `json:"success"`
	Errors         []string `json:"errors,omitempty"`
	StorageKey     string   `json:"storageKey,omitempty"`
	URL            string   `json:"url,omitempty"`
	EmailDelivered bool     `json:"emailDelivered"`
	EmailSkipped   bool     `json:"emailSkipped"`
	MessageID      string   `json:"messageId,omitempty"`
}

// RegenerateResult reports the admin artifact-recovery operation.
type RegenerateResult struct {
	OrderCode      string               `json:"orderCode"`
	TreeCodesAdded int                  `json:"treeCodesAdded"`
	TreeGeneration TreeGenerationResult `json:"-"`
	Contract       ContractResult       `json:"contract"`
}

// VerifyOrderRequest is the manual admin settlement input.
type VerifyOrderRequest struct {
	OrderID uuid.UUID
	Note    string
}
