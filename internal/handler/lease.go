package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mhollis/keyturn/internal/auth"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
)

type LeaseHandler struct {
	leaseStore *store.LeaseStore
	unitStore  *store.UnitStore
	logger     *slog.Logger
}

func NewLeaseHandler(ls *store.LeaseStore, us *store.UnitStore, logger *slog.Logger) *LeaseHandler {
	return &LeaseHandler{leaseStore: ls, unitStore: us, logger: logger}
}

// Create opens a draft lease on a unit. Activation is a separate step so
// terms can be reviewed before billing starts.
func (h *LeaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID       int64     `json:"unit_id"`
		StartDate    time.Time `json:"start_date"`
		EndDate      time.Time `json:"end_date"`
		RentCents    int64     `json:"rent_cents"`
		DueDay       int       `json:"due_day"`
		GraceDays    int       `json:"grace_days"`
		LateFeeMode  string    `json:"late_fee_mode"`
		LateFeeCents int64     `json:"late_fee_cents"`
		LateFeeBps   int64     `json:"late_fee_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.RentCents <= 0 {
		writeError(w, http.StatusBadRequest, "rent_cents must be positive")
		return
	}
	if req.DueDay < 1 || req.DueDay > 31 {
		writeError(w, http.StatusBadRequest, "due_day must be between 1 and 31")
		return
	}
	if !req.EndDate.After(req.StartDate) {
		writeError(w, http.StatusBadRequest, "end_date must be after start_date")
		return
	}
	feeMode := model.LateFeeMode(req.LateFeeMode)
	switch feeMode {
	case model.LateFeeNone, model.LateFeeFlat, model.LateFeePercent:
	default:
		writeError(w, http.StatusBadRequest, "late_fee_mode must be empty, flat, or percent")
		return
	}
	if feeMode == model.LateFeeFlat && req.LateFeeCents <= 0 {
		writeError(w, http.StatusBadRequest, "flat late fee needs late_fee_cents")
		return
	}
	if feeMode == model.LateFeePercent && req.LateFeeBps <= 0 {
		writeError(w, http.StatusBadRequest, "percent late fee needs late_fee_bps")
		return
	}

	unit, err := h.unitStore.GetByID(req.UnitID)
	if err != nil {
		h.logger.Error("lease unit lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if unit == nil {
		writeError(w, http.StatusNotFound, "unit not found")
		return
	}

	lease, err := h.leaseStore.Create(store.NewLease{
		UnitID:       req.UnitID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		RentCents:    req.RentCents,
		DueDay:       req.DueDay,
		GraceDays:    req.GraceDays,
		LateFeeMode:  feeMode,
		LateFeeCents: req.LateFeeCents,
		LateFeeBps:   req.LateFeeBps,
	})
	if err != nil {
		h.logger.Error("create lease", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, lease)
}

// Activate moves a draft lease into the billing cycle.
func (h *LeaseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.pathLease(w, r)
	if !ok {
		return
	}
	if lease.Status != model.LeaseDraft {
		writeError(w, http.StatusConflict, "only draft leases can be activated")
		return
	}
	if err := h.leaseStore.UpdateStatus(lease.ID, model.LeaseActive); err != nil {
		h.logger.Error("activate lease", "lease_id", lease.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	lease.Status = model.LeaseActive
	writeJSON(w, http.StatusOK, lease)
}

// End closes an active lease; no further rent is generated for it.
func (h *LeaseHandler) End(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.pathLease(w, r)
	if !ok {
		return
	}
	if lease.Status != model.LeaseActive {
		writeError(w, http.StatusConflict, "only active leases can be ended")
		return
	}
	if err := h.leaseStore.UpdateStatus(lease.ID, model.LeaseEnded); err != nil {
		h.logger.Error("end lease", "lease_id", lease.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	lease.Status = model.LeaseEnded
	writeJSON(w, http.StatusOK, lease)
}

func (h *LeaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.pathLease(w, r)
	if !ok {
		return
	}
	if !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "lease not found")
		return
	}
	writeJSON(w, http.StatusOK, lease)
}

func (h *LeaseHandler) ListByUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}
	leases, err := h.leaseStore.ListByUnit(unitID)
	if err != nil {
		h.logger.Error("list leases by unit", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, leases)
}

// Mine lists the caller's own leases.
func (h *LeaseHandler) Mine(w http.ResponseWriter, r *http.Request) {
	leases, err := h.leaseStore.ListByTenant(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list tenant leases", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, leases)
}

func (h *LeaseHandler) pathLease(w http.ResponseWriter, r *http.Request) (*model.Lease, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lease id")
		return nil, false
	}
	lease, err := h.leaseStore.GetByID(id)
	if err != nil {
		h.logger.Error("lease lookup", "lease_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if lease == nil {
		writeError(w, http.StatusNotFound, "lease not found")
		return nil, false
	}
	return lease, true
}
