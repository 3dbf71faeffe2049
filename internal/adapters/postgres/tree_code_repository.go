package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

type treeCodeRepository struct {
	db *gorm.DB
}

// NewTreeCodeRepository builds the Postgres-backed tree code store.
func NewTreeCodeRepository(db *gorm.DB) ports.TreeCodeRepository {
	return &treeCodeRepository{db: db}
}

// NextSequence reserves the next per-year sequence number in a single
// atomic statement. Concurrent settlements of different orders never
// observe the same value.
func (r *treeCodeRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO tree_code_sequences (year, last_sequence)
		VALUES (?, 1)
		ON CONFLICT (year)
		DO UPDATE SET last_sequence = tree_code_sequences.last_sequence + 1
		RETURNING last_sequence`, year).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("next tree code sequence: %w", err)
	}
	return seq, nil
}

func (r *treeCodeRepository) Create(ctx context.Context, code domain.TreeCode) error {
	m := treeCodeModel{
		Code:      code.Code,
		OrderID:   code.OrderID,
		Year:      code.Year,
		Sequence:  code.Sequence,
		CreatedAt: code.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create tree code: %w", err)
	}
	return nil
}

func (r *treeCodeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.TreeCode, error) {
	var models []treeCodeModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sequence ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list tree codes: %w", err)
	}
	codes := make([]domain.TreeCode, 0, len(models))
	for _, m := range models {
		codes = append(codes, toDomainTreeCode(m))
	}
	return codes, nil
}

func (r *treeCodeRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&treeCodeModel{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count tree codes: %w", err)
	}
	return int(count), nil
}
