package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mhollis/keyturn/internal/email"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/token"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	issuer       *token.Issuer
	emailClient  *email.Client
	cookieName   string
	logger       *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	issuer *token.Issuer,
	ec *email.Client,
	cookieName string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		issuer:       issuer,
		emailClient:  ec,
		cookieName:   cookieName,
		logger:       logger,
	}
}

// RequestLink issues a magic-link login token and emails it. The response
// is the same whether or not the account exists, to prevent enumeration.
func (h *AuthHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	// Always answer "sent" from here down.
	defer writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		return
	}
	if user == nil {
		return
	}

	t, err := h.issuer.Issue(time.Now().UTC(), req.Email, model.PurposeLogin, token.LoginTTL, nil)
	if err != nil {
		h.logger.Error("issue login token", "error", err)
		return
	}

	// Token creation stands even if the email fails; the user can retry.
	if err := h.emailClient.SendMagicLink(req.Email, t.Value); err != nil {
		h.logger.Error("send magic link", "error", err)
	}
}

// Verify redeems a login token and establishes a session.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	t, err := h.issuer.Redeem(time.Now().UTC(), req.Token, model.PurposeLogin)
	if err != nil {
		writeError(w, http.StatusUnauthorized, redeemErrorMessage(err))
		return
	}

	user, err := h.userStore.GetByEmail(t.Subject)
	if err != nil || user == nil {
		h.logger.Error("verify lookup", "subject", t.Subject, "error", err)
		writeError(w, http.StatusUnauthorized, "account not found")
		return
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, user)
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.sessionStore.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func redeemErrorMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "link expired"
	case errors.Is(err, token.ErrAlreadyConsumed):
		return "link already used"
	case errors.Is(err, token.ErrNotFound):
		return "invalid link"
	}
	return "invalid link"
}
