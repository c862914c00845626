package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mhollis/keyturn/internal/auth"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/ticket"
	"github.com/mhollis/keyturn/internal/websocket"
)

type TicketHandler struct {
	ticketStore *store.TicketStore
	leaseStore  *store.LeaseStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewTicketHandler(ts *store.TicketStore, ls *store.LeaseStore, hub *websocket.Hub, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{ticketStore: ts, leaseStore: ls, hub: hub, logger: logger}
}

// Create opens a maintenance ticket against a lease.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeaseID     int64  `json:"lease_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	lease, err := h.leaseStore.GetByID(req.LeaseID)
	if err != nil {
		h.logger.Error("ticket lease lookup", "lease_id", req.LeaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil || !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "lease not found")
		return
	}

	t, err := h.ticketStore.Create(req.LeaseID, auth.UserID(r.Context()), req.Title, req.Description)
	if err != nil {
		h.logger.Error("create ticket", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(websocket.NewEvent("ticket", "opened", t.ID, map[string]any{
		"lease_id": t.LeaseID,
	}))
	writeJSON(w, http.StatusCreated, t)
}

func (h *TicketHandler) ListByLease(w http.ResponseWriter, r *http.Request) {
	leaseID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lease id")
		return
	}

	lease, err := h.leaseStore.GetByID(leaseID)
	if err != nil {
		h.logger.Error("tickets lease lookup", "lease_id", leaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil || !leaseVisible(r.Context(), lease) {
		writeError(w, http.StatusNotFound, "lease not found")
		return
	}

	tickets, err := h.ticketStore.ListByLease(leaseID)
	if err != nil {
		h.logger.Error("list tickets", "lease_id", leaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// UpdateStatus advances a ticket through its lifecycle. Illegal moves
// (e.g. reopening a closed ticket) are rejected with 409.
func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ticketID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	to, err := ticket.Parse(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.ticketStore.GetByID(ticketID)
	if err != nil {
		h.logger.Error("ticket lookup", "ticket_id", ticketID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}

	next, err := ticket.Transition(ticket.Status(t.Status), to)
	if err != nil {
		if errors.Is(err, ticket.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.ticketStore.UpdateStatus(ticketID, string(next))
	if err != nil {
		h.logger.Error("update ticket", "ticket_id", ticketID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(websocket.NewEvent("ticket", "updated", updated.ID, map[string]any{
		"lease_id": updated.LeaseID,
		"status":   updated.Status,
	}))
	writeJSON(w, http.StatusOK, updated)
}
