package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mhollis/keyturn/internal/email"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/token"
)

type InviteHandler struct {
	leaseStore    *store.LeaseStore
	unitStore     *store.UnitStore
	propertyStore *store.PropertyStore
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	issuer        *token.Issuer
	emailClient   *email.Client
	cookieName    string
	logger        *slog.Logger
}

func NewInviteHandler(
	ls *store.LeaseStore,
	us *store.UnitStore,
	ps *store.PropertyStore,
	users *store.UserStore,
	ss *store.SessionStore,
	issuer *token.Issuer,
	ec *email.Client,
	cookieName string,
	logger *slog.Logger,
) *InviteHandler {
	return &InviteHandler{
		leaseStore:    ls,
		unitStore:     us,
		propertyStore: ps,
		userStore:     users,
		sessionStore:  ss,
		issuer:        issuer,
		emailClient:   ec,
		cookieName:    cookieName,
		logger:        logger,
	}
}

// Create issues a tenant invite for a lease. Re-inviting the same email
// supersedes any pending invite for it.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		LeaseID int64  `json:"lease_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.LeaseID == 0 {
		writeError(w, http.StatusBadRequest, "email and lease_id are required")
		return
	}

	lease, err := h.leaseStore.GetByID(req.LeaseID)
	if err != nil {
		h.logger.Error("invite lease lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lease == nil {
		writeError(w, http.StatusNotFound, "lease not found")
		return
	}

	t, err := h.issuer.Issue(time.Now().UTC(), req.Email, model.PurposeInvite, token.InviteTTL, &lease.ID)
	if err != nil {
		h.logger.Error("issue invite token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	propertyName, unitLabel := h.describeUnit(lease.UnitID)
	if err := h.emailClient.SendInvite(req.Email, t.Value, propertyName, unitLabel); err != nil {
		// The invite stands; surface delivery trouble in logs only.
		h.logger.Error("send invite email", "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":     "invited",
		"expires_at": t.ExpiresAt,
	})
}

// Accept redeems an invite token, creating the tenant account if needed
// and attaching it to the invited lease.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	t, err := h.issuer.Redeem(time.Now().UTC(), req.Token, model.PurposeInvite)
	if err != nil {
		writeError(w, http.StatusUnauthorized, redeemErrorMessage(err))
		return
	}

	user, err := h.userStore.GetByEmail(t.Subject)
	if err != nil {
		h.logger.Error("invite accept lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		user, err = h.userStore.Create(t.Subject, strings.TrimSpace(req.Name), model.RoleTenant)
		if err != nil {
			h.logger.Error("create tenant", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if t.LeaseID != nil {
		if err := h.leaseStore.AssignTenant(*t.LeaseID, user.ID); err != nil {
			h.logger.Error("assign tenant", "lease_id", *t.LeaseID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, user)
}

func (h *InviteHandler) describeUnit(unitID int64) (propertyName, unitLabel string) {
	unit, err := h.unitStore.GetByID(unitID)
	if err != nil || unit == nil {
		return "your new home", ""
	}
	unitLabel = unit.Label
	property, err := h.propertyStore.GetByID(unit.PropertyID)
	if err != nil || property == nil {
		return "your new home", unitLabel
	}
	return property.Name, unitLabel
}
