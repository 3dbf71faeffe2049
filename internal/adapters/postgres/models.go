package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
)

type orderModel struct {
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode       string     `gorm:"column:order_code;uniqueIndex"`
	Status          string     `gorm:"column:status"`
	PaymentMethod   string     `gorm:"column:payment_method"`
	PaymentStatus   string     `gorm:"column:payment_status"`
	TotalAmount     float64    `gorm:"column:total_amount"`
	Quantity        int        `gorm:"column:quantity"`
	BuyerID         *uuid.UUID `gorm:"column:buyer_id;type:uuid"`
	BuyerName       string     `gorm:"column:buyer_name"`
	BuyerEmail      string     `gorm:"column:buyer_email"`
	LotID           string     `gorm:"column:lot_id"`
	TransactionHash string     `gorm:"column:transaction_hash"`
	PaidAt          *time.Time `gorm:"column:paid_at"`
	VerifiedAt      *time.Time `gorm:"column:verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (orderModel) TableName() string { return "orders" }

type treeCodeModel struct {
	Code      string    `gorm:"column:code;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	Year      int       `gorm:"column:year"`
	Sequence  int       `gorm:"column:sequence"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (treeCodeModel) TableName() string { return "tree_codes" }

type contractModel struct {
	OrderCode      string     `gorm:"column:order_code;primaryKey"`
	StorageKey     string     `gorm:"column:storage_key"`
	URL            string     `gorm:"column:url"`
	EmailMessageID *string    `gorm:"column:email_message_id"`
	GeneratedAt    time.Time  `gorm:"column:generated_at"`
	EmailedAt      *time.Time `gorm:"column:emailed_at"`
}

func (contractModel) TableName() string { return "contracts" }

func toDomainOrder(m orderModel) domain.Order {
	return domain.Order{
		OrderID:         m.OrderID,
		OrderCode:       m.OrderCode,
		Status:          m.Status,
		PaymentMethod:   m.PaymentMethod,
		PaymentStatus:   m.PaymentStatus,
		TotalAmount:     m.TotalAmount,
		Quantity:        m.Quantity,
		BuyerID:         m.BuyerID,
		BuyerName:       m.BuyerName,
		BuyerEmail:      m.BuyerEmail,
		LotID:           m.LotID,
		TransactionHash: m.TransactionHash,
		PaidAt:          m.PaidAt,
		VerifiedAt:      m.VerifiedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toDomainOrders(models []orderModel) []domain.Order {
	orders := make([]domain.Order, 0, len(models))
	for _, m := range models {
		orders = append(orders, toDomainOrder(m))
	}
	return orders
}

func toDomainTreeCode(m treeCodeModel) domain.TreeCode {
	return domain.TreeCode{
		Code:      m.Code,
		OrderID:   m.OrderID,
		Year:      m.Year,
		Sequence:  m.Sequence,
		CreatedAt: m.CreatedAt,
	}
}

func toDomainContract(m contractModel) domain.ContractRecord {
	return domain.ContractRecord{
		OrderCode:      m.OrderCode,
		StorageKey:     m.StorageKey,
		URL:            m.URL,
		EmailMessageID: m.EmailMessageID,
		GeneratedAt:    m.GeneratedAt,
		EmailedAt:      m.EmailedAt,
	}
}
