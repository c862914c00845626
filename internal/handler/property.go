package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mhollis/keyturn/internal/auth"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
)

type PropertyHandler struct {
	propertyStore *store.PropertyStore
	unitStore     *store.UnitStore
	logger        *slog.Logger
}

func NewPropertyHandler(ps *store.PropertyStore, us *store.UnitStore, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{propertyStore: ps, unitStore: us, logger: logger}
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	property, err := h.propertyStore.Create(auth.UserID(r.Context()), req.Name, strings.TrimSpace(req.Address))
	if err != nil {
		h.logger.Error("create property", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, property)
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	properties, err := h.propertyStore.ListByOwner(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list properties", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

func (h *PropertyHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	property, err := h.ownedProperty(r, propertyID)
	if err != nil {
		h.logger.Error("unit property lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}

	unit, err := h.unitStore.Create(propertyID, req.Label)
	if err != nil {
		h.logger.Error("create unit", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (h *PropertyHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	property, err := h.ownedProperty(r, propertyID)
	if err != nil {
		h.logger.Error("units property lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}

	units, err := h.unitStore.ListByProperty(propertyID)
	if err != nil {
		h.logger.Error("list units", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, units)
}

// ownedProperty returns the property only if the caller owns it or is an
// admin; otherwise nil, matching a not-found response.
func (h *PropertyHandler) ownedProperty(r *http.Request, id int64) (*model.Property, error) {
	property, err := h.propertyStore.GetByID(id)
	if err != nil || property == nil {
		return nil, err
	}
	if !auth.IsAdmin(r.Context()) && property.OwnerID != auth.UserID(r.Context()) {
		return nil, nil
	}
	return property, nil
}
