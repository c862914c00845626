package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mhollis/keyturn/internal/auth"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
)

type AgingHandler struct {
	agingStore *store.AgingStore
	leaseStore *store.LeaseStore
	logger     *slog.Logger
}

func NewAgingHandler(as *store.AgingStore, ls *store.LeaseStore, logger *slog.Logger) *AgingHandler {
	return &AgingHandler{agingStore: as, leaseStore: ls, logger: logger}
}

// GetByLease returns the lease's latest receivables aging snapshot.
func (h *AgingHandler) GetByLease(w http.ResponseWriter, r *http.Request) {
	leaseID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lease id")
		return
	}

	lease, err := h.leaseStore.GetByID(leaseID)
	if err != nil {
		h.logger.Error("aging lease lookup", "lease_id", leaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil || !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "lease not found")
		return
	}

	snap, err := h.agingStore.GetByLease(leaseID)
	if err != nil {
		h.logger.Error("get aging snapshot", "lease_id", leaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot yet; run a billing cycle")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// OwnerReport rolls up aging across every lease under the caller's
// properties, one row per lease plus portfolio totals.
func (h *AgingHandler) OwnerReport(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.agingStore.ListByOwner(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("owner aging report", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var totals model.AgingSnapshot
	for _, s := range snaps {
		totals.CurrentCents += s.CurrentCents
		totals.Days30Cents += s.Days30Cents
		totals.Days60Cents += s.Days60Cents
		totals.Days90Cents += s.Days90Cents
		totals.TotalCents += s.TotalCents
		if s.OldestDays > totals.OldestDays {
			totals.OldestDays = s.OldestDays
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"leases": snaps,
		"totals": map[string]int64{
			"current_cents":    totals.CurrentCents,
			"days30_cents":     totals.Days30Cents,
			"days60_cents":     totals.Days60Cents,
			"days90_cents":     totals.Days90Cents,
			"total_cents":      totals.TotalCents,
			"overdue_cents":    totals.OverdueCents(),
			"oldest_days":      int64(totals.OldestDays),
			"leases_reporting": int64(len(snaps)),
		},
	})
}
