package domain

import "time"

// ContractData is the complete input for rendering a purchase contract.
// Validation collects every missing field at once so support staff see the
// full gap, not just the first violation.
type ContractData struct {
	OrderCode     string
	CustomerName  string
	CustomerEmail string
	Quantity      int
	TotalAmount   float64
	TreeCodes     []string
	PaymentMethod string
	PaidAt        *time.Time
	VerifiedAt    *time.Time
}

// ContractRecord tracks the durable artifact produced for a settled order.
// Regeneration overwrites the stored artifact; it never duplicates ledger state.
type ContractRecord struct {
	OrderCode      string
	StorageKey     string
	URL            string
	EmailMessageID *string
	GeneratedAt    time.Time
	EmailedAt      *time.Time
}
