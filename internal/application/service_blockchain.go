package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)"),
// the topic[0] of every ERC20 Transfer event.
const erc20TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// ProcessBlockchainWebhook runs the USDT settlement state machine. There is
// no memo to correlate on, so order resolution is a tolerant amount match
// over the most recent pending USDT orders, followed by full on-chain
// verification of the claimed transfer.
func (s *Service) ProcessBlockchainWebhook(ctx context.Context, req BlockchainWebhookRequest) (WebhookResult, error) {
	logger := appLogger().With(
		"operation", "blockchain_webhook",
		"tx_hash", req.TxHash,
	)

	if s.cfg.ReceivingWallet == "" {
		return WebhookResult{}, fmt.Errorf("receiving wallet: %w", domain.ErrConfigMissing)
	}
	if s.chain == nil {
		return WebhookResult{}, fmt.Errorf("chain rpc: %w", domain.ErrConfigMissing)
	}
	if req.TxHash == "" {
		return WebhookResult{Success: false, Message: "Missing transaction hash"}, nil
	}

	if existing, err := s.orders.GetVerifiedByTransactionHash(ctx, req.TxHash); err == nil {
		logger.InfoContext(ctx, "duplicate blockchain delivery ignored",
			"outcome", "duplicate",
			"order_code", existing.OrderCode,
		)
		return WebhookResult{Success: true, Message: msgAlreadyProcessed}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return WebhookResult{}, fmt.Errorf("dedup lookup: %w", err)
	}

	observedUSDT, err := s.claimedUSDTAmount(req.Amount)
	if err != nil {
		logger.WarnContext(ctx, "unparseable claimed amount",
			"outcome", "rejected",
			"raw_amount", req.Amount,
		)
		return WebhookResult{Success: false, Message: "Invalid amount format"}, nil
	}

	order, err := s.matchPendingOrder(ctx, observedUSDT)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotMatched) {
			logger.WarnContext(ctx, "no pending order matched payment",
				"outcome", "rejected",
				"observed_usdt", observedUSDT,
				"scan_limit", s.cfg.PendingScanLimit,
			)
			return WebhookResult{Success: false, Message: "No pending order matched payment amount"}, nil
		}
		return WebhookResult{}, fmt.Errorf("match pending order: %w", err)
	}

	expectedUSDT := order.TotalAmount / s.cfg.VNDPerUSDT
	actualUSDT, err := s.VerifyUSDTPayment(ctx, req.TxHash, expectedUSDT)
	if err != nil {
		if result, handled := blockchainRejection(err); handled {
			logger.WarnContext(ctx, "usdt verification rejected payment",
				"outcome", "rejected",
				"order_code", order.OrderCode,
				"expected_usdt", expectedUSDT,
				"error", err.Error(),
			)
			return result, nil
		}
		return WebhookResult{}, fmt.Errorf("verify usdt payment: %w", err)
	}

	paidAt := time.Unix(req.Timestamp, 0).UTC()
	if req.Timestamp <= 0 {
		paidAt = s.nowFn()
	}
	settled, err := s.settleOrder(ctx, order, req.TxHash, paidAt)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return WebhookResult{Success: true, Message: msgAlreadyProcessed}, nil
		}
		return WebhookResult{}, fmt.Errorf("settle blockchain payment: %w", err)
	}

	logger.InfoContext(ctx, "blockchain payment settled",
		"outcome", "success",
		"order_code", settled.OrderCode,
		"expected_usdt", expectedUSDT,
		"actual_usdt", actualUSDT,
	)

	s.runPostPaymentWorkflow(ctx, settled)

	return WebhookResult{Success: true, Message: "Payment processed successfully"}, nil
}

// blockchainRejection maps verifier failures to client-facing rejections.
// Anything it does not recognize is an infrastructure fault and propagates.
func blockchainRejection(err error) (WebhookResult, bool) {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return WebhookResult{Success: false, Message: "Transaction not found on chain"}, true
	case errors.Is(err, domain.ErrOnChainFailure):
		return WebhookResult{Success: false, Message: "Transaction failed on chain"}, true
	case errors.Is(err, domain.ErrTransferLogMissing):
		return WebhookResult{Success: false, Message: "No matching token transfer in transaction"}, true
	case errors.Is(err, domain.ErrWrongRecipient):
		return WebhookResult{Success: false, Message: "Transfer recipient does not match receiving wallet"}, true
	case errors.Is(err, domain.ErrInsufficientAmount):
		return WebhookResult{Success: false, Message: err.Error()}, true
	default:
		return WebhookResult{}, false
	}
}

// claimedUSDTAmount converts the provider's raw integer amount string into
// token units using the network's decimal shift.
func (s *Service) claimedUSDTAmount(raw string) (float64, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() < 0 {
		return 0, domain.ErrInvalidInput
	}
	return shiftDecimals(value, s.chain.TokenDecimals()), nil
}

// matchPendingOrder scans the most recent pending USDT orders for one whose
// VND total, converted at the configured static rate, falls within the USDT
// tolerance band of the observed amount. The scan is bounded by
// PendingScanLimit; a real high-volume deployment would store the expected
// USDT amount on the order instead.
func (s *Service) matchPendingOrder(ctx context.Context, observedUSDT float64) (domain.Order, error) {
	if s.cfg.VNDPerUSDT <= 0 {
		return domain.Order{}, fmt.Errorf("vnd/usdt rate: %w", domain.ErrConfigMissing)
	}
	pending, err := s.orders.ListRecentPending(ctx, domain.PaymentMethodUSDT, s.cfg.PendingScanLimit)
	if err != nil {
		return domain.Order{}, err
	}
	for _, order := range pending {
		expected := order.TotalAmount / s.cfg.VNDPerUSDT
		if domain.WithinTolerance(expected, observedUSDT, s.cfg.USDTTolerance) {
			return order, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotMatched
}

// VerifyUSDTPayment confirms the claimed transaction against the chain:
// the receipt must exist and have succeeded, carry a Transfer of the
// configured token to the platform wallet, and move at least the tolerance
// floor of the expected amount. Over-payment is accepted as-is.
func (s *Service) VerifyUSDTPayment(ctx context.Context, txHash string, expectedUSDT float64) (float64, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, s.cfg.ChainRPCTimeout)
	defer cancel()

	receipt, err := s.chain.TransactionReceipt(rpcCtx, txHash)
	if err != nil {
		return 0, err
	}
	if receipt.Status != 1 {
		return 0, domain.ErrOnChainFailure
	}

	transfer, ok := findTokenTransfer(receipt, s.cfg.TokenAddress)
	if !ok {
		return 0, domain.ErrTransferLogMissing
	}
	if !strings.EqualFold(transfer.to, s.cfg.ReceivingWallet) {
		return 0, domain.ErrWrongRecipient
	}

	actualUSDT := shiftDecimals(transfer.amount, s.chain.TokenDecimals())
	floor, _ := domain.ToleranceBounds(expectedUSDT, s.cfg.USDTTolerance)
	if actualUSDT < floor {
		return actualUSDT, fmt.Errorf("%w: expected %.2f USDT, received %.2f USDT",
			domain.ErrInsufficientAmount, expectedUSDT, actualUSDT)
	}
	return actualUSDT, nil
}

type tokenTransfer struct {
	from   string
	to     string
	amount *big.Int
}

// findTokenTransfer locates the ERC20 Transfer log emitted by the expected
// token contract. From/to live in the indexed topics; the amount is in the
// log data (or topic 3 for tokens that index it).
func findTokenTransfer(receipt ports.ChainReceipt, tokenAddress string) (tokenTransfer, bool) {
	for _, logEntry := range receipt.Logs {
		if !strings.EqualFold(logEntry.Address, tokenAddress) {
			continue
		}
		if len(logEntry.Topics) < 3 || !strings.EqualFold(logEntry.Topics[0], erc20TransferTopic) {
			continue
		}
		transfer := tokenTransfer{
			from: addressFromTopic(logEntry.Topics[1]),
			to:   addressFromTopic(logEntry.Topics[2]),
		}
		if len(logEntry.Topics) >= 4 {
			transfer.amount = new(big.Int).SetBytes(hexBytes(logEntry.Topics[3]))
		} else {
			transfer.amount = new(big.Int).SetBytes(logEntry.Data)
		}
		return transfer, true
	}
	return tokenTransfer{}, false
}

// addressFromTopic extracts the 20-byte address packed into a 32-byte
// indexed topic.
func addressFromTopic(topic string) string {
	hex := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(hex) < 40 {
		return "0x" + hex
	}
	return "0x" + hex[len(hex)-40:]
}

func hexBytes(topic string) []byte {
	hex := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(hex)%2 == 1 {
		hex = "0" + hex
	}
	out := make([]byte, len(hex)/2)
	for i := 0; i < len(out); i++ {
		out[i] = nibble(hex[2*i])<<4 | nibble(hex[2*i+1])
	}
	return out
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

// shiftDecimals converts a raw integer token amount to token units.
func shiftDecimals(raw *big.Int, decimals int) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
	out, _ := value.Float64()
	return out
}
