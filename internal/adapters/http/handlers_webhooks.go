package http

import (
	"net/http"

	"github.com/deptrai/longthanhland-sub000/internal/application"
)

// bankingWebhook handles the banking partner's payment notification. All
// business outcomes, including rejections, answer 200 with a
// {success, message} body so the provider does not retry-storm settled
// payments; only admission failures and infrastructure faults use other
// status codes.
func (h *Handler) bankingWebhook(w http.ResponseWriter, r *http.Request) {
	var req application.BankingWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed webhook payload")
		return
	}

	result, err := h.service.ProcessBankingWebhook(r.Context(), req)
	if err != nil {
		writeMappedError(w, r, "banking_webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// blockchainWebhook handles the chain-watcher's USDT transfer notification
// with the same always-200 business-outcome contract as the banking channel.
func (h *Handler) blockchainWebhook(w http.ResponseWriter, r *http.Request) {
	var req application.BlockchainWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed webhook payload")
		return
	}

	result, err := h.service.ProcessBlockchainWebhook(r.Context(), req)
	if err != nil {
		writeMappedError(w, r, "blockchain_webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
