package domain

import (
	"regexp"
	"strings"
)

const (
	// BankingAmountTolerance is the accepted band around the expected VND
	// amount for bank transfers. Fees and rounding make exact matches rare.
	BankingAmountTolerance = 0.01
	// USDTAmountTolerance is wider to absorb exchange-rate drift between
	// quote time and on-chain settlement time.
	USDTAmountTolerance = 0.05
)

// orderCodePattern matches the DGX-YYYYMMDD-XXXXX code embedded in
// bank-transfer free-text memos. Case-insensitive; codes are normalized
// to uppercase before lookup.
var orderCodePattern = regexp.MustCompile(`(?i)DGX-\d{8}-[A-Z0-9]{5}`)

// ExtractOrderCode pulls the first order code out of free-text transfer
// content. The second return is false when no code is present.
func ExtractOrderCode(content string) (string, bool) {
	match := orderCodePattern.FindString(content)
	if match == "" {
		return "", false
	}
	return strings.ToUpper(match), true
}

// ToleranceBounds returns the inclusive band [expected*(1-t), expected*(1+t)].
func ToleranceBounds(expected, tolerance float64) (float64, float64) {
	return expected * (1 - tolerance), expected * (1 + tolerance)
}

// WithinTolerance reports whether actual falls inside the tolerance band
// around expected.
func WithinTolerance(expected, actual, tolerance float64) bool {
	min, max := ToleranceBounds(expected, tolerance)
	return actual >= min && actual <= max
}
