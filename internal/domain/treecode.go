package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TreeCodePrefix is the fixed prefix of minted tree identifiers.
const TreeCodePrefix = "TREE"

// TreeCode is one planted-tree identifier, minted per purchased unit only
// after the order's payment has been verified. Codes are sequential within
// a calendar year and globally unique.
type TreeCode struct {
	Code      string
	OrderID   uuid.UUID
	Year      int
	Sequence  int
	CreatedAt time.Time
}

// FormatTreeCode renders the canonical TREE-YYYY-NNNNN form.
func FormatTreeCode(year, sequence int) string {
	return fmt.Sprintf("%s-%d-%05d", TreeCodePrefix, year, sequence)
}
