package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deptrai/longthanhland-sub000/internal/application"
	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

type orderView struct {
	OrderID         uuid.UUID  `json:"orderId"`
	OrderCode       string     `json:"orderCode"`
	Status          string     `json:"status"`
	PaymentMethod   string     `json:"paymentMethod"`
	PaymentStatus   string     `json:"paymentStatus"`
	TotalAmount     float64    `json:"totalAmount"`
	Quantity        int        `json:"quantity"`
	LotID           string     `json:"lotId,omitempty"`
	TransactionHash string     `json:"transactionHash,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toOrderView(o domain.Order) orderView {
	return orderView{
		OrderID:         o.OrderID,
		OrderCode:       o.OrderCode,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		TotalAmount:     o.TotalAmount,
		Quantity:        o.Quantity,
		LotID:           o.LotID,
		TransactionHash: o.TransactionHash,
		PaidAt:          o.PaidAt,
		VerifiedAt:      o.VerifiedAt,
		CreatedAt:       o.CreatedAt,
	}
}

func toOrderViews(orders []domain.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ports.OrderFilter{
		Status:        q.Get("status"),
		PaymentMethod: q.Get("paymentMethod"),
		Limit:         parseIntDefault(q.Get("limit"), 50),
		Offset:        parseIntDefault(q.Get("offset"), 0),
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &t
		}
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeMappedError(w, r, "admin_list_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"orders": toOrderViews(orders),
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) verifyOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid order id")
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	// An empty body is fine for manual verification.
	_ = decodeBody(r, &req)

	order, err := h.service.VerifyOrderManually(r.Context(), application.VerifyOrderRequest{
		OrderID: orderID,
		Note:    req.Note,
	})
	if err != nil {
		writeMappedError(w, r, "verify_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderView(order))
}

func (h *Handler) assignLot(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid order id")
		return
	}
	var req struct {
		LotID string `json:"lotId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	order, err := h.service.AssignLot(r.Context(), orderID, req.LotID)
	if err != nil {
		writeMappedError(w, r, "assign_lot", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderView(order))
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.service.ListLotAssignments(r.Context(),
		parseIntDefault(q.Get("limit"), 50),
		parseIntDefault(q.Get("offset"), 0),
	)
	if err != nil {
		writeMappedError(w, r, "list_lots", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"lots": toOrderViews(orders)})
}

// myHistory lists a buyer's orders. Human authentication is handled by the
// host platform; the buyer id arrives resolved in the X-Buyer-Id header.
func (h *Handler) myHistory(w http.ResponseWriter, r *http.Request) {
	buyerID, err := uuid.Parse(r.Header.Get("X-Buyer-Id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "missing or invalid buyer id")
		return
	}
	q := r.URL.Query()
	orders, err := h.service.BuyerOrderHistory(r.Context(), buyerID,
		parseIntDefault(q.Get("limit"), 50),
		parseIntDefault(q.Get("offset"), 0),
	)
	if err != nil {
		writeMappedError(w, r, "my_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"orders": toOrderViews(orders)})
}

// regenerateArtifacts re-runs the post-settlement workflow for a settled
// order: missing tree codes are topped up and the contract is rebuilt and
// re-delivered from ledger state.
func (h *Handler) regenerateArtifacts(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid order id")
		return
	}

	result, err := h.service.RegenerateArtifacts(r.Context(), orderID)
	if err != nil {
		writeMappedError(w, r, "regenerate_artifacts", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}
