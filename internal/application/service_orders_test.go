package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

func TestVerifyOrderManuallySettles(t *testing.T) {
	t.Parallel()

	order := pendingBankOrder("DGX-20260109-ABC12", 260000, 2)
	env := newTestEnv(order)

	settled, err := env.svc.VerifyOrderManually(context.Background(), VerifyOrderRequest{
		OrderID: order.OrderID,
		Note:    "bank statement checked by hand",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !settled.Settled() {
		t.Fatalf("order not settled: %+v", settled)
	}
	if !strings.HasPrefix(settled.TransactionHash, "ADMIN-") {
		t.Fatalf("manual settlement must carry an operator hash, got %q", settled.TransactionHash)
	}
	if len(env.treeCodes.codes) != 2 {
		t.Fatalf("post-payment workflow did not run: %d codes", len(env.treeCodes.codes))
	}
}

func TestVerifyOrderManuallyRejectsSettledOrder(t *testing.T) {
	t.Parallel()

	order := pendingBankOrder("DGX-20260109-ABC12", 260000, 1)
	order.PaymentStatus = domain.PaymentStatusVerified
	env := newTestEnv(order)

	_, err := env.svc.VerifyOrderManually(context.Background(), VerifyOrderRequest{OrderID: order.OrderID})
	if !errors.Is(err, domain.ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestAssignLotRequiresSettledOrder(t *testing.T) {
	t.Parallel()

	order := pendingBankOrder("DGX-20260109-ABC12", 260000, 1)
	env := newTestEnv(order)

	if _, err := env.svc.AssignLot(context.Background(), order.OrderID, "LOT-A-017"); !errors.Is(err, domain.ErrOrderNotSettled) {
		t.Fatalf("expected ErrOrderNotSettled, got %v", err)
	}
	if _, err := env.svc.AssignLot(context.Background(), order.OrderID, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty lot id, got %v", err)
	}
}

func TestAssignLotOnSettledOrder(t *testing.T) {
	t.Parallel()

	order := pendingBankOrder("DGX-20260109-ABC12", 260000, 1)
	order.Status = domain.OrderStatusPaid
	order.PaymentStatus = domain.PaymentStatusVerified
	paidAt := time.Now().UTC()
	order.PaidAt = &paidAt
	env := newTestEnv(order)

	updated, err := env.svc.AssignLot(context.Background(), order.OrderID, "LOT-A-017")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.LotID != "LOT-A-017" {
		t.Fatalf("lot not assigned: %+v", updated)
	}

	lots, err := env.svc.ListLotAssignments(context.Background(), 0, 0)
	if err != nil || len(lots) != 1 {
		t.Fatalf("lot assignment not listed: %v err=%v", lots, err)
	}
}

func TestListOrdersClampsPagination(t *testing.T) {
	t.Parallel()

	env := newTestEnv(pendingBankOrder("DGX-20260109-ABC12", 260000, 1))

	_, total, err := env.svc.ListOrders(context.Background(), ports.OrderFilter{Limit: -5, Offset: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
}
