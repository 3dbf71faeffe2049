package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
)

const msgAlreadyProcessed = "Transaction already processed"

// ProcessBankingWebhook runs the banking settlement state machine:
// dedupe -> order resolution from memo text -> amount validation ->
// settlement -> post-payment workflow. Signature and IP admission happen
// upstream in the HTTP guards before this is reached.
func (s *Service) ProcessBankingWebhook(ctx context.Context, req BankingWebhookRequest) (WebhookResult, error) {
	logger := appLogger().With(
		"operation", "banking_webhook",
		"transaction_id", req.TransactionID,
	)

	if s.cfg.WorkspaceID == "" {
		// Deployment is not ready to accept payments; fail loudly rather
		// than settle into an unowned workspace.
		return WebhookResult{}, fmt.Errorf("workspace id: %w", domain.ErrConfigMissing)
	}
	if req.TransactionID == "" {
		return WebhookResult{Success: false, Message: "Missing transaction id"}, nil
	}

	if existing, err := s.orders.GetVerifiedByTransactionHash(ctx, req.TransactionID); err == nil {
		logger.InfoContext(ctx, "duplicate banking delivery ignored",
			"outcome", "duplicate",
			"order_code", existing.OrderCode,
		)
		return WebhookResult{Success: true, Message: msgAlreadyProcessed}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return WebhookResult{}, fmt.Errorf("dedup lookup: %w", err)
	}

	orderCode, found := domain.ExtractOrderCode(req.Content)
	if !found {
		logger.WarnContext(ctx, "banking delivery carried no order code",
			"outcome", "rejected",
			"reason", "order_code_not_found",
		)
		return WebhookResult{Success: false, Message: "No order code found in transfer content"}, nil
	}

	order, err := s.orders.GetByCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "banking delivery referenced unknown order",
				"outcome", "rejected",
				"order_code", orderCode,
			)
			return WebhookResult{Success: false, Message: fmt.Sprintf("Order not found: %s", orderCode)}, nil
		}
		return WebhookResult{}, fmt.Errorf("order lookup: %w", err)
	}

	if order.Settled() {
		logger.InfoContext(ctx, "order already verified, delivery ignored",
			"outcome", "duplicate",
			"order_code", order.OrderCode,
		)
		return WebhookResult{Success: true, Message: msgAlreadyProcessed}, nil
	}

	if !domain.WithinTolerance(order.TotalAmount, req.Amount, s.cfg.BankingTolerance) {
		logger.WarnContext(ctx, "banking amount outside tolerance",
			"outcome", "rejected",
			"order_code", order.OrderCode,
			"expected", order.TotalAmount,
			"received", req.Amount,
		)
		return WebhookResult{
			Success: false,
			Message: fmt.Sprintf("Amount mismatch: expected %.0f VND, received %.0f VND", order.TotalAmount, req.Amount),
		}, nil
	}

	paidAt := s.parseBankingTimestamp(req.Timestamp)
	settled, err := s.settleOrder(ctx, order, req.TransactionID, paidAt)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return WebhookResult{Success: true, Message: msgAlreadyProcessed}, nil
		}
		return WebhookResult{}, fmt.Errorf("settle banking payment: %w", err)
	}

	s.runPostPaymentWorkflow(ctx, settled)

	return WebhookResult{Success: true, Message: "Payment processed successfully"}, nil
}

// parseBankingTimestamp tolerates the partner's known timestamp shapes and
// falls back to the receive time when parsing fails.
func (s *Service) parseBankingTimestamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return s.nowFn()
}
