package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/websocket"
)

type ChargeHandler struct {
	chargeStore *store.ChargeStore
	leaseStore  *store.LeaseStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewChargeHandler(cs *store.ChargeStore, ls *store.LeaseStore, hub *websocket.Hub, logger *slog.Logger) *ChargeHandler {
	return &ChargeHandler{chargeStore: cs, leaseStore: ls, hub: hub, logger: logger}
}

// ListByLease returns a lease's charges, newest period last.
func (h *ChargeHandler) ListByLease(w http.ResponseWriter, r *http.Request) {
	leaseID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lease id")
		return
	}

	lease, err := h.leaseStore.GetByID(leaseID)
	if err != nil {
		h.logger.Error("charge lease lookup", "lease_id", leaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil || !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "lease not found")
		return
	}

	charges, err := h.chargeStore.ListByLease(leaseID)
	if err != nil {
		h.logger.Error("list charges", "lease_id", leaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, charges)
}

// RecordPayment applies a manual payment (check, cash, bank transfer)
// against a charge.
func (h *ChargeHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	chargeID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid charge id")
		return
	}

	var req struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "amount_cents must be positive")
		return
	}

	charge, err := h.chargeStore.GetByID(chargeID)
	if err != nil {
		h.logger.Error("payment charge lookup", "charge_id", chargeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if charge == nil {
		writeError(w, http.StatusNotFound, "charge not found")
		return
	}
	if charge.Outstanding() == 0 {
		writeError(w, http.StatusConflict, "charge is already settled")
		return
	}

	updated, err := h.chargeStore.ApplyPayment(chargeID, req.AmountCents, model.PaymentManual, "", time.Now().UTC())
	if err != nil {
		h.logger.Error("apply payment", "charge_id", chargeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if updated.Status == model.ChargePaid {
		h.hub.Broadcast(websocket.NewEvent("charge", "paid", updated.ID, map[string]any{
			"lease_id": updated.LeaseID,
		}))
	}
	writeJSON(w, http.StatusOK, updated)
}

// ListPayments returns the payment history for a charge.
func (h *ChargeHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	chargeID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid charge id")
		return
	}

	charge, err := h.chargeStore.GetByID(chargeID)
	if err != nil {
		h.logger.Error("payments charge lookup", "charge_id", chargeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if charge == nil {
		writeError(w, http.StatusNotFound, "charge not found")
		return
	}
	lease, err := h.leaseStore.GetByID(charge.LeaseID)
	if err != nil {
		h.logger.Error("payments lease lookup", "lease_id", charge.LeaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil || !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "charge not found")
		return
	}

	payments, err := h.chargeStore.ListPaymentsByCharge(chargeID)
	if err != nil {
		h.logger.Error("list payments", "charge_id", chargeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
