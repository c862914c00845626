package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	stripeclient "github.com/mhollis/keyturn/internal/billing/stripe"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/websocket"
)

const webhookMaxBody = 65536

type WebhookHandler struct {
	stripeClient *stripeclient.Client
	chargeStore  *store.ChargeStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewWebhookHandler(sc *stripeclient.Client, cs *store.ChargeStore, hub *websocket.Hub, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{stripeClient: sc, chargeStore: cs, hub: hub, logger: logger}
}

// HandleStripe verifies and processes Stripe webhook events. Only
// checkout.session.completed is acted on; everything else is
// acknowledged and dropped.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookMaxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	event, err := h.stripeClient.ConstructWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	if event.Type != "checkout.session.completed" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	chargeID, err := strconv.ParseInt(sess.Metadata["charge_id"], 10, 64)
	if err != nil {
		h.logger.Error("webhook missing charge_id metadata", "session_id", sess.ID)
		writeError(w, http.StatusBadRequest, "missing charge_id")
		return
	}

	// Stripe retries deliveries; a session we already recorded is done.
	seen, err := h.chargeStore.HasStripeSession(sess.ID)
	if err != nil {
		h.logger.Error("webhook dedup check", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if seen {
		w.WriteHeader(http.StatusOK)
		return
	}

	updated, err := h.chargeStore.ApplyPayment(chargeID, sess.AmountTotal, model.PaymentStripe, sess.ID, time.Now().UTC())
	if err != nil {
		h.logger.Error("apply stripe payment", "charge_id", chargeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("stripe payment applied", "charge_id", chargeID, "amount_cents", sess.AmountTotal)
	if updated.Status == model.ChargePaid {
		h.hub.Broadcast(websocket.NewEvent("charge", "paid", updated.ID, map[string]any{
			"lease_id": updated.LeaseID,
		}))
	}
	w.WriteHeader(http.StatusOK)
}
