package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// ListOrders is the admin ledger view with status/method/date filters.
func (s *Service) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]domain.Order, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.orders.List(ctx, filter)
}

// BuyerOrderHistory lists a buyer's own orders, newest first.
func (s *Service) BuyerOrderHistory(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByBuyer(ctx, buyerID, limit, offset)
}

// ListLotAssignments lists settled orders that have a land lot assigned.
func (s *Service) ListLotAssignments(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListLotAssignments(ctx, limit, offset)
}

// VerifyOrderManually settles an order from the admin surface, e.g. after
// off-channel confirmation of a payment the webhooks never saw. It runs the
// same critical section as the webhook path; the synthetic transaction hash
// marks the settlement as operator-initiated.
func (s *Service) VerifyOrderManually(ctx context.Context, req VerifyOrderRequest) (domain.Order, error) {
	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Settled() {
		return domain.Order{}, domain.ErrAlreadySettled
	}

	txHash := "ADMIN-" + uuid.NewString()
	settled, err := s.settleOrder(ctx, order, txHash, s.nowFn())
	if err != nil {
		return domain.Order{}, err
	}

	appLogger().InfoContext(ctx, "order verified manually",
		"operation", "verify_order_manually",
		"outcome", "success",
		"order_code", settled.OrderCode,
		"note", req.Note,
	)

	s.runPostPaymentWorkflow(ctx, settled)
	return settled, nil
}

// AssignLot binds a land-lot identifier to a settled order.
func (s *Service) AssignLot(ctx context.Context, orderID uuid.UUID, lotID string) (domain.Order, error) {
	if lotID == "" {
		return domain.Order{}, fmt.Errorf("lot id: %w", domain.ErrInvalidInput)
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Settled() {
		return domain.Order{}, domain.ErrOrderNotSettled
	}
	return s.orders.AssignLot(ctx, orderID, lotID, s.nowFn())
}

// RegenerateArtifacts is the saga recovery tool: for a settled order it
// tops up missing tree codes and rebuilds (and re-delivers) the contract
// from ledger state. Safe to run repeatedly; settlement itself is never
// touched.
func (s *Service) RegenerateArtifacts(ctx context.Context, orderID uuid.UUID) (RegenerateResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return RegenerateResult{}, err
	}
	if !order.Settled() {
		return RegenerateResult{}, domain.ErrOrderNotSettled
	}

	result := RegenerateResult{OrderCode: order.OrderCode}

	existing, err := s.treeCodes.CountByOrder(ctx, orderID)
	if err != nil {
		return RegenerateResult{}, fmt.Errorf("count tree codes: %w", err)
	}
	if missing := order.Quantity - existing; missing > 0 {
		result.TreeGeneration = s.GenerateTreeCodes(ctx, order, missing)
		result.TreeCodesAdded = len(result.TreeGeneration.Generated)
	} else {
		result.TreeGeneration = TreeGenerationResult{Success: true}
	}

	codes, err := s.treeCodes.ListByOrder(ctx, orderID)
	if err != nil {
		return RegenerateResult{}, fmt.Errorf("list tree codes: %w", err)
	}
	codeStrings := make([]string, 0, len(codes))
	for _, c := range codes {
		codeStrings = append(codeStrings, c.Code)
	}

	result.Contract = s.GenerateAndDeliverContract(ctx, s.contractDataFor(order, codeStrings))

	appLogger().InfoContext(ctx, "artifacts regenerated",
		"operation", "regenerate_artifacts",
		"outcome", outcomeFor(result),
		"order_code", order.OrderCode,
		"tree_codes_added", result.TreeCodesAdded,
		"contract_success", result.Contract.Success,
	)
	return result, nil
}

func outcomeFor(result RegenerateResult) string {
	if result.TreeGeneration.Success && result.Contract.Success {
		return "success"
	}
	return "partial"
}
