package application

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

var contractEmailTemplate = template.Must(template.New("contract_email").Parse(`<p>Dear {{.CustomerName}},</p>
<p>Thank you for your purchase. Your contract for order <strong>{{.OrderCode}}</strong> ({{.Quantity}} trees) is attached.</p>
<p>Long Thanh Land</p>`))

// GenerateAndDeliverContract is the single orchestrating entry point of the
// contract service: validate, render, store, then attempt email delivery.
// A stored contract with a failed delivery still counts as produced; the
// result separates "stored" from "delivered" so delivery can be retried
// without re-rendering.
func (s *Service) GenerateAndDeliverContract(ctx context.Context, data domain.ContractData) ContractResult {
	logger := appLogger().With(
		"operation", "generate_contract",
		"order_code", data.OrderCode,
	)

	if violations := validateContractData(data); len(violations) > 0 {
		return ContractResult{Success: false, Errors: violations}
	}
	if s.store == nil {
		return ContractResult{Success: false, Errors: []string{"object storage is not configured"}}
	}

	pdf, err := s.renderer.Render(data)
	if err != nil {
		return ContractResult{Success: false, Errors: []string{fmt.Sprintf("render contract: %v", err)}}
	}

	key := fmt.Sprintf("contracts/%s-%d.pdf", data.OrderCode, s.nowFn().Unix())
	url, err := s.store.Put(ctx, key, "application/pdf", pdf)
	if err != nil {
		return ContractResult{Success: false, Errors: []string{fmt.Sprintf("store contract: %v", err)}}
	}

	record := domain.ContractRecord{
		OrderCode:   data.OrderCode,
		StorageKey:  key,
		URL:         url,
		GeneratedAt: s.nowFn(),
	}
	if err := s.contracts.Upsert(ctx, record); err != nil {
		return ContractResult{Success: false, Errors: []string{fmt.Sprintf("record contract: %v", err)}}
	}

	result := ContractResult{Success: true, StorageKey: key, URL: url}

	if !s.email.Enabled() {
		// Unconfigured SMTP is a deliberate deployment state, not a failure.
		result.EmailSkipped = true
		logger.InfoContext(ctx, "contract stored, email delivery disabled",
			"outcome", "success",
			"storage_key", key,
		)
		return result
	}

	messageID, err := s.deliverContractEmail(ctx, data, pdf)
	if err != nil {
		logger.ErrorContext(ctx, "contract email delivery failed",
			"outcome", "partial",
			"storage_key", key,
			"recipient", data.CustomerEmail,
			"error", err.Error(),
			"manual_action", "retry delivery through the regenerate-artifacts admin endpoint",
		)
		return result
	}

	result.EmailDelivered = true
	result.MessageID = messageID
	if err := s.contracts.SetEmailReceipt(ctx, data.OrderCode, messageID, s.nowFn()); err != nil {
		logger.WarnContext(ctx, "email receipt not recorded",
			"outcome", "partial",
			"message_id", messageID,
			"error", err.Error(),
		)
	}
	return result
}

// ResendContractEmail retries delivery of an already-stored contract. The
// stored artifact is fetched back from object storage, never re-rendered.
func (s *Service) ResendContractEmail(ctx context.Context, orderCode string) (string, error) {
	if !s.email.Enabled() {
		return "", domain.ErrEmailDisabled
	}

	record, err := s.contracts.GetByOrderCode(ctx, orderCode)
	if err != nil {
		return "", fmt.Errorf("load contract record: %w", err)
	}
	order, err := s.orders.GetByCode(ctx, orderCode)
	if err != nil {
		return "", fmt.Errorf("load order: %w", err)
	}

	pdf, err := s.store.Get(ctx, record.StorageKey)
	if err != nil {
		return "", fmt.Errorf("fetch stored contract: %w", err)
	}

	messageID, err := s.deliverContractEmail(ctx, s.contractDataFor(order, nil), pdf)
	if err != nil {
		return "", err
	}
	if err := s.contracts.SetEmailReceipt(ctx, orderCode, messageID, s.nowFn()); err != nil {
		appLogger().WarnContext(ctx, "email receipt not recorded",
			"operation", "resend_contract_email",
			"order_code", orderCode,
			"error", err.Error(),
		)
	}
	return messageID, nil
}

func (s *Service) deliverContractEmail(ctx context.Context, data domain.ContractData, pdf []byte) (string, error) {
	var body strings.Builder
	if err := contractEmailTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render contract email: %w", err)
	}
	return s.email.Send(ctx, ports.EmailMessage{
		To:             data.CustomerEmail,
		Subject:        fmt.Sprintf("Your tree purchase contract %s", data.OrderCode),
		Body:           body.String(),
		AttachmentName: fmt.Sprintf("%s.pdf", data.OrderCode),
		Attachment:     pdf,
	})
}

// validateContractData checks completeness and reports every violation at
// once so support staff see the whole gap in a single pass.
func validateContractData(data domain.ContractData) []string {
	var violations []string
	if data.OrderCode == "" {
		violations = append(violations, "orderCode is required")
	}
	if data.CustomerName == "" {
		violations = append(violations, "customerName is required")
	}
	if data.CustomerEmail == "" {
		violations = append(violations, "customerEmail is required")
	}
	if data.Quantity <= 0 {
		violations = append(violations, "quantity must be positive")
	}
	if data.TotalAmount <= 0 {
		violations = append(violations, "totalAmount must be positive")
	}
	if len(data.TreeCodes) == 0 {
		violations = append(violations, "treeCodes must not be empty")
	}
	if data.PaymentMethod == "" {
		violations = append(violations, "paymentMethod is required")
	}
	if data.PaidAt == nil {
		violations = append(violations, "paidAt is required")
	}
	return violations
}
