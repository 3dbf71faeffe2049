package application

import (
	"context"
	"fmt"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
)

// GenerateTreeCodes mints quantity tree identifiers for a settled order.
// Each unit is retried independently with exponential backoff; one bad mint
// must not lose the other units, so a partial shortfall is reported in the
// result instead of returned as an error.
func (s *Service) GenerateTreeCodes(ctx context.Context, order domain.Order, quantity int) TreeGenerationResult {
	result := TreeGenerationResult{Generated: make([]string, 0, quantity)}
	logger := appLogger().With(
		"operation", "generate_tree_codes",
		"order_code", order.OrderCode,
	)

	for i := 0; i < quantity; i++ {
		code, err := s.mintTreeCodeWithRetry(ctx, order)
		if err != nil {
			result.Failed++
			logger.ErrorContext(ctx, "tree code generation failed after retries",
				"outcome", "failure",
				"batch_index", i,
				"error", err.Error(),
				"manual_action", "mint the missing code via POST /orders/{id}/regenerate-artifacts",
			)
			continue
		}
		result.Generated = append(result.Generated, code)
	}

	result.Success = result.Failed == 0
	return result
}

// mintTreeCodeWithRetry attempts one unit up to the configured ceiling,
// doubling the backoff between attempts.
func (s *Service) mintTreeCodeWithRetry(ctx context.Context, order domain.Order) (string, error) {
	delay := s.cfg.TreeCodeRetryBase
	var lastErr error
	for attempt := 1; attempt <= s.cfg.TreeCodeMaxAttempts; attempt++ {
		code, err := s.mintTreeCode(ctx, order)
		if err == nil {
			return code, nil
		}
		lastErr = err
		if attempt == s.cfg.TreeCodeMaxAttempts {
			break
		}
		if sleepErr := s.sleepFn(ctx, delay); sleepErr != nil {
			return "", fmt.Errorf("retry interrupted: %w", sleepErr)
		}
		delay *= 2
	}
	return "", fmt.Errorf("exhausted %d attempts: %w", s.cfg.TreeCodeMaxAttempts, lastErr)
}

// mintTreeCode reserves the next yearly sequence number and persists the
// resulting code. Sequence reservation is atomic in the repository, so
// concurrent settlements never collide on a code.
func (s *Service) mintTreeCode(ctx context.Context, order domain.Order) (string, error) {
	year := s.nowFn().Year()
	sequence, err := s.treeCodes.NextSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("reserve sequence: %w", err)
	}
	code := domain.FormatTreeCode(year, sequence)
	if err := s.treeCodes.Create(ctx, domain.TreeCode{
		Code:      code,
		OrderID:   order.OrderID,
		Year:      year,
		Sequence:  sequence,
		CreatedAt: s.nowFn(),
	}); err != nil {
		return "", fmt.Errorf("store tree code: %w", err)
	}
	return code, nil
}
