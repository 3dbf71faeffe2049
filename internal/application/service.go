package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// Service runs the payment verification and settlement pipeline: webhook
// state machines, on-chain verification, tree-code minting and contract
// delivery. All external effects go through ports.
type Service struct {
	cfg       Config
	orders    ports.OrderRepository
	treeCodes ports.TreeCodeRepository
	contracts ports.ContractRepository
	chain     ports.ChainReader
	store     ports.ObjectStore
	email     ports.EmailSender
	renderer  ports.ContractRenderer
	lock      ports.SettlementLock
	nowFn     func() time.Time
	sleepFn   func(ctx context.Context, d time.Duration) error
}

type Dependencies struct {
	Config    Config
	Orders    ports.OrderRepository
	TreeCodes ports.TreeCodeRepository
	Contracts ports.ContractRepository
	Chain     ports.ChainReader
	Store     ports.ObjectStore
	Email     ports.EmailSender
	Renderer  ports.ContractRenderer
	Lock      ports.SettlementLock
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.BankingTolerance <= 0 {
		cfg.BankingTolerance = domain.BankingAmountTolerance
	}
	if cfg.USDTTolerance <= 0 {
		cfg.USDTTolerance = domain.USDTAmountTolerance
	}
	if cfg.PendingScanLimit <= 0 {
		cfg.PendingScanLimit = 50
	}
	if cfg.TreeCodeMaxAttempts <= 0 {
		cfg.TreeCodeMaxAttempts = 3
	}
	if cfg.TreeCodeRetryBase <= 0 {
		cfg.TreeCodeRetryBase = 500 * time.Millisecond
	}
	if cfg.ChainRPCTimeout <= 0 {
		cfg.ChainRPCTimeout = 15 * time.Second
	}
	if cfg.SettlementLockTTL <= 0 {
		cfg.SettlementLockTTL = 30 * time.Second
	}
	return &Service{
		cfg:       cfg,
		orders:    deps.Orders,
		treeCodes: deps.TreeCodes,
		contracts: deps.Contracts,
		chain:     deps.Chain,
		store:     deps.Store,
		email:     deps.Email,
		renderer:  deps.Renderer,
		lock:      deps.Lock,
		nowFn:     func() time.Time { return time.Now().UTC() },
		sleepFn:   sleepContext,
	}
}

func appLogger() *slog.Logger {
	return slog.Default().With(
		"module", "settlement",
		"layer", "application",
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// settleOrder executes the settlement critical section: acquire the
// per-order lock, re-check the VERIFIED state, then perform the single
// conditional ledger write. First-settled-wins; a lost race reports
// domain.ErrAlreadySettled without touching the stored transaction hash.
func (s *Service) settleOrder(ctx context.Context, order domain.Order, txHash string, paidAt time.Time) (domain.Order, error) {
	lockKey := "settle:" + order.OrderCode
	acquired, err := s.lock.Acquire(ctx, lockKey, s.cfg.SettlementLockTTL)
	if err != nil {
		return domain.Order{}, fmt.Errorf("acquire settlement lock: %w", err)
	}
	if !acquired {
		// A concurrent delivery holds the section; treat as duplicate.
		return domain.Order{}, domain.ErrAlreadySettled
	}
	defer func() {
		if releaseErr := s.lock.Release(ctx, lockKey); releaseErr != nil {
			appLogger().WarnContext(ctx, "settlement lock release failed",
				"operation", "settle_order",
				"order_code", order.OrderCode,
				"error", releaseErr.Error(),
			)
		}
	}()

	current, err := s.orders.GetByID(ctx, order.OrderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("reload order before settlement: %w", err)
	}
	if current.Settled() {
		return domain.Order{}, domain.ErrAlreadySettled
	}

	settled, err := s.orders.Settle(ctx, ports.SettleParams{
		OrderID:         order.OrderID,
		TransactionHash: txHash,
		PaidAt:          paidAt,
		VerifiedAt:      s.nowFn(),
	})
	if err != nil {
		return domain.Order{}, err
	}

	appLogger().InfoContext(ctx, "order settled",
		"operation", "settle_order",
		"outcome", "success",
		"order_code", settled.OrderCode,
		"tx_hash", txHash,
		"payment_method", settled.PaymentMethod,
	)
	return settled, nil
}

// runPostPaymentWorkflow drives the best-effort saga after settlement:
// tree-code minting, then contract generation and delivery. The ledger
// write is the durability anchor; failures here are logged for manual
// follow-up and never alter the webhook outcome.
func (s *Service) runPostPaymentWorkflow(ctx context.Context, order domain.Order) {
	logger := appLogger().With(
		"operation", "post_payment_workflow",
		"order_code", order.OrderCode,
	)

	treeRes := s.GenerateTreeCodes(ctx, order, order.Quantity)
	if !treeRes.Success {
		logger.ErrorContext(ctx, "tree code generation incomplete",
			"outcome", "partial",
			"generated", len(treeRes.Generated),
			"failed", treeRes.Failed,
			"manual_action", "run POST /orders/{id}/regenerate-artifacts to mint missing tree codes",
		)
	}

	contractRes := s.GenerateAndDeliverContract(ctx, s.contractDataFor(order, treeRes.Generated))
	switch {
	case !contractRes.Success:
		logger.ErrorContext(ctx, "contract generation failed",
			"outcome", "failure",
			"errors", contractRes.Errors,
			"manual_action", "run POST /orders/{id}/regenerate-artifacts to rebuild the contract",
		)
	case !contractRes.EmailDelivered && !contractRes.EmailSkipped:
		logger.ErrorContext(ctx, "contract email delivery failed",
			"outcome", "partial",
			"contract_url", contractRes.URL,
			"manual_action", "resend via POST /orders/{id}/regenerate-artifacts or contact the buyer",
		)
	default:
		logger.InfoContext(ctx, "post payment workflow completed",
			"outcome", "success",
			"tree_codes", len(treeRes.Generated),
			"contract_url", contractRes.URL,
			"email_skipped", contractRes.EmailSkipped,
		)
	}
}

func (s *Service) contractDataFor(order domain.Order, treeCodes []string) domain.ContractData {
	return domain.ContractData{
		OrderCode:     order.OrderCode,
		CustomerName:  order.BuyerName,
		CustomerEmail: order.BuyerEmail,
		Quantity:      order.Quantity,
		TotalAmount:   order.TotalAmount,
		TreeCodes:     treeCodes,
		PaymentMethod: order.PaymentMethod,
		PaidAt:        order.PaidAt,
		VerifiedAt:    order.VerifiedAt,
	}
}
