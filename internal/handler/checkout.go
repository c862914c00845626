package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mhollis/keyturn/internal/auth"
	stripeclient "github.com/mhollis/keyturn/internal/billing/stripe"
	"github.com/mhollis/keyturn/internal/store"
)

type CheckoutHandler struct {
	stripeClient *stripeclient.Client
	chargeStore  *store.ChargeStore
	leaseStore   *store.LeaseStore
	userStore    *store.UserStore
	logger       *slog.Logger
}

func NewCheckoutHandler(sc *stripeclient.Client, cs *store.ChargeStore, ls *store.LeaseStore, us *store.UserStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		stripeClient: sc,
		chargeStore:  cs,
		leaseStore:   ls,
		userStore:    us,
		logger:       logger,
	}
}

// Create starts a Stripe checkout session for a charge's outstanding
// balance and returns the hosted payment URL.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.stripeClient.Configured() {
		writeError(w, http.StatusServiceUnavailable, "online payments are not configured")
		return
	}

	chargeID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid charge id")
		return
	}

	charge, err := h.chargeStore.GetByID(chargeID)
	if err != nil {
		h.logger.Error("checkout charge lookup", "charge_id", chargeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if charge == nil {
		writeError(w, http.StatusNotFound, "charge not found")
		return
	}

	lease, err := h.leaseStore.GetByID(charge.LeaseID)
	if err != nil {
		h.logger.Error("checkout lease lookup", "lease_id", charge.LeaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil || !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "charge not found")
		return
	}

	outstanding := charge.Outstanding()
	if outstanding == 0 {
		writeError(w, http.StatusConflict, "charge is already settled")
		return
	}

	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		h.logger.Error("checkout user lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	description := fmt.Sprintf("%s due %s", charge.Kind, charge.DueDate.Format("Jan 2, 2006"))
	url, err := h.stripeClient.CreateRentCheckout(charge.ID, outstanding, description, user.Email)
	if err != nil {
		h.logger.Error("create checkout session", "charge_id", charge.ID, "error", err)
		writeError(w, http.StatusBadGateway, "payment provider error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
