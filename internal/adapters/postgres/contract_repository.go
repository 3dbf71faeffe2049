package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository builds the Postgres-backed contract artifact index.
func NewContractRepository(db *gorm.DB) ports.ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Upsert(ctx context.Context, record domain.ContractRecord) error {
	m := contractModel{
		OrderCode:      record.OrderCode,
		StorageKey:     record.StorageKey,
		URL:            record.URL,
		EmailMessageID: record.EmailMessageID,
		GeneratedAt:    record.GeneratedAt,
		EmailedAt:      record.EmailedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"storage_key", "url", "email_message_id", "generated_at", "emailed_at",
		}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert contract: %w", err)
	}
	return nil
}

func (r *contractRepository) GetByOrderCode(ctx context.Context, orderCode string) (domain.ContractRecord, error) {
	var m contractModel
	err := r.db.WithContext(ctx).First(&m, "order_code = ?", orderCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ContractRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ContractRecord{}, fmt.Errorf("get contract: %w", err)
	}
	return toDomainContract(m), nil
}

func (r *contractRepository) SetEmailReceipt(ctx context.Context, orderCode, messageID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&contractModel{}).
		Where("order_code = ?", orderCode).
		Updates(map[string]any{
			"email_message_id": messageID,
			"emailed_at":       at,
		})
	if res.Error != nil {
		return fmt.Errorf("set email receipt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
