package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository builds the Postgres-backed order ledger.
func NewOrderRepository(db *gorm.DB) ports.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var m orderModel
	err := r.db.WithContext(ctx).First(&m, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order by id: %w", err)
	}
	return toDomainOrder(m), nil
}

func (r *orderRepository) GetByCode(ctx context.Context, orderCode string) (domain.Order, error) {
	var m orderModel
	err := r.db.WithContext(ctx).First(&m, "order_code = ?", orderCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order by code: %w", err)
	}
	return toDomainOrder(m), nil
}

func (r *orderRepository) GetVerifiedByTransactionHash(ctx context.Context, txHash string) (domain.Order, error) {
	var m orderModel
	err := r.db.WithContext(ctx).
		Where("transaction_hash = ? AND payment_status = ?", txHash, domain.PaymentStatusVerified).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order by transaction hash: %w", err)
	}
	return toDomainOrder(m), nil
}

func (r *orderRepository) ListRecentPending(ctx context.Context, paymentMethod string, limit int) ([]domain.Order, error) {
	var models []orderModel
	err := r.db.WithContext(ctx).
		Where("payment_method = ? AND payment_status = ?", paymentMethod, domain.PaymentStatusPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	return toDomainOrders(models), nil
}

// Settle is the single ledger write of the settlement path. The UPDATE is
// conditional on the order not already being VERIFIED, so concurrent
// duplicate deliveries resolve first-settled-wins without a transaction.
func (r *orderRepository) Settle(ctx context.Context, params ports.SettleParams) (domain.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("order_id = ? AND payment_status <> ?", params.OrderID, domain.PaymentStatusVerified).
		Updates(map[string]any{
			"status":           domain.OrderStatusPaid,
			"payment_status":   domain.PaymentStatusVerified,
			"transaction_hash": params.TransactionHash,
			"paid_at":          params.PaidAt,
			"verified_at":      params.VerifiedAt,
			"updated_at":       params.VerifiedAt,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.Order{}, domain.ErrAlreadySettled
		}
		return domain.Order{}, fmt.Errorf("settle order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := r.GetByID(ctx, params.OrderID)
		if err != nil {
			return domain.Order{}, err
		}
		if current.Settled() {
			return domain.Order{}, domain.ErrAlreadySettled
		}
		return domain.Order{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, params.OrderID)
}

func (r *orderRepository) AssignLot(ctx context.Context, orderID uuid.UUID, lotID string, at time.Time) (domain.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"lot_id":     lotID,
			"updated_at": at,
		})
	if res.Error != nil {
		return domain.Order{}, fmt.Errorf("assign lot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, orderID)
}

func (r *orderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&orderModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var models []orderModel
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return toDomainOrders(models), total, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]domain.Order, error) {
	var models []orderModel
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list orders by buyer: %w", err)
	}
	return toDomainOrders(models), nil
}

func (r *orderRepository) ListLotAssignments(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	var models []orderModel
	err := r.db.WithContext(ctx).
		Where("lot_id <> ''").
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list lot assignments: %w", err)
	}
	return toDomainOrders(models), nil
}
