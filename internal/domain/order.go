package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodUSDT         = "USDT"
)

const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusVerified = "VERIFIED"
	PaymentStatusFailed   = "FAILED"
)

// Order is the ledger record of a tree purchase. OrderCode is the
// human-facing identifier embedded in bank-transfer memos (DGX-YYYYMMDD-XXXXX);
// TransactionHash is the provider-side settlement identifier and doubles as
// the idempotency key: at most one VERIFIED order may hold a given hash.
type Order struct {
	OrderID         uuid.UUID
	OrderCode       string
	Status          string
	PaymentMethod   string
	PaymentStatus   string
	TotalAmount     float64
	Quantity        int
	BuyerID         *uuid.UUID
	BuyerName       string
	BuyerEmail      string
	LotID           string
	TransactionHash string
	PaidAt          *time.Time
	VerifiedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Settled reports whether the order's payment is already terminal.
// Verified orders never transition backward.
func (o Order) Settled() bool {
	return o.PaymentStatus == PaymentStatusVerified
}
