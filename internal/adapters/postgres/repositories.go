package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// Repositories bundles every Postgres-backed store behind the domain ports.
type Repositories struct {
	Orders    ports.OrderRepository
	TreeCodes ports.TreeCodeRepository
	Contracts ports.ContractRepository
}

// NewRepositories wires all repositories over one shared connection pool.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Orders:    NewOrderRepository(db),
		TreeCodes: NewTreeCodeRepository(db),
		Contracts: NewContractRepository(db),
	}
}

// isUniqueViolation relies on gorm's TranslateError mapping of the Postgres
// 23505 class.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
