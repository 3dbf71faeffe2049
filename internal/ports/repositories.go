package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
)

// SettleParams captures the single ledger write of the settlement step.
// The write must be conditional on the order not already being VERIFIED so
// that concurrent duplicate deliveries resolve first-settled-wins.
type SettleParams struct {
	OrderID         uuid.UUID
	TransactionHash string
	PaidAt          time.Time
	VerifiedAt      time.Time
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status        string
	PaymentMethod string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// OrderRepository is the order ledger. It is the only mutable shared
// resource in the settlement path.
type OrderRepository interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetByCode(ctx context.Context, orderCode string) (domain.Order, error)
	// GetVerifiedByTransactionHash returns the VERIFIED order holding the
	// given provider transaction id, or domain.ErrNotFound. This is the
	// webhook dedup lookup.
	GetVerifiedByTransactionHash(ctx context.Context, txHash string) (domain.Order, error)
	// ListRecentPending returns at most limit PENDING orders of the given
	// payment method, newest first. The bounded scan is a documented limit
	// of amount-based matching.
	ListRecentPending(ctx context.Context, paymentMethod string, limit int) ([]domain.Order, error)
	// Settle performs the conditional settlement write and returns the
	// updated order. domain.ErrAlreadySettled when the order was VERIFIED
	// before the write landed.
	Settle(ctx context.Context, params SettleParams) (domain.Order, error)
	AssignLot(ctx context.Context, orderID uuid.UUID, lotID string, at time.Time) (domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]domain.Order, error)
	ListLotAssignments(ctx context.Context, limit, offset int) ([]domain.Order, error)
}

// TreeCodeRepository mints and stores per-unit tree identifiers.
type TreeCodeRepository interface {
	// NextSequence atomically reserves the next sequence number for the
	// given year. Safe under concurrent settlement of different orders.
	NextSequence(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, code domain.TreeCode) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.TreeCode, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// ContractRepository tracks generated contract artifacts by order code.
type ContractRepository interface {
	// Upsert overwrites any previous record for the order code; contract
	// regeneration is idempotent-safe by design.
	Upsert(ctx context.Context, record domain.ContractRecord) error
	GetByOrderCode(ctx context.Context, orderCode string) (domain.ContractRecord, error)
	SetEmailReceipt(ctx context.Context, orderCode, messageID string, at time.Time) error
}
