package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/middleware"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/observability"
	"github.com/probelink/probelink/internal/repository"
	"github.com/probelink/probelink/internal/service"
)

// SessionHandler serves every token-lifecycle endpoint. The check, info,
// extend and self-logout routes answer softly with ok:false instead of
// rejecting, so they read the token themselves rather than going through
// the auth middleware.
type SessionHandler struct {
	store   *service.SessionStore
	history repository.LoginHistoryRepository
}

func NewSessionHandler(store *service.SessionStore, history repository.LoginHistoryRepository) *SessionHandler {
	return &SessionHandler{store: store, history: history}
}

func (h *SessionHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	sess := h.store.Validate(r.Header.Get(middleware.TokenHeader))
	if sess == nil {
		response.JSON(w, r, http.StatusOK, map[string]bool{"ok": false})
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"ok": true, "is_trusted": sess.IsTrusted})
}

func (h *SessionHandler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	remain, trusted, ok := h.store.RemainMS(r.Header.Get(middleware.TokenHeader))
	if !ok {
		response.JSON(w, r, http.StatusOK, map[string]bool{"ok": false})
		return
	}
	type info struct {
		Ok        bool   `json:"ok"`
		IsTrusted bool   `json:"is_trusted"`
		RemainMS  *int64 `json:"remain_ms,omitempty"`
	}
	response.JSON(w, r, http.StatusOK, info{Ok: true, IsTrusted: trusted, RemainMS: remain})
}

func (h *SessionHandler) ExtendSession(w http.ResponseWriter, r *http.Request) {
	renewed := h.store.Renew(r.Header.Get(middleware.TokenHeader))
	response.JSON(w, r, http.StatusOK, map[string]bool{"ok": renewed})
}

func (h *SessionHandler) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	views, ok := h.store.Views(r.Header.Get(middleware.TokenHeader))
	if !ok {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	type listing struct {
		Ok       bool                 `json:"ok"`
		Sessions []domain.SessionView `json:"sessions"`
	}
	response.JSON(w, r, http.StatusOK, listing{Ok: true, Sessions: views})
}

// Logout removes the caller's own session. Idempotent: an unknown token
// still answers ok.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.LogoutSelf(r.Header.Get(middleware.TokenHeader))
	observability.Audit(r, "logout_self")
	response.JSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SessionHandler) LogoutToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, r, http.StatusBadRequest, "malformed_request")
		return
	}

	err := h.store.LogoutOther(r.Header.Get(middleware.TokenHeader), req.Token)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrForbidden):
		observability.Audit(r, "forced_logout_refused", "reason", "trusted")
		response.Fail(w, r, http.StatusForbidden, "trusted")
	default:
		observability.Audit(r, "forced_logout")
		response.JSON(w, r, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (h *SessionHandler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.Fail(w, r, http.StatusNotFound, "history_disabled")
		return
	}
	attempts, err := h.history.Recent(50)
	if err != nil {
		response.Fail(w, r, http.StatusInternalServerError, "history_unavailable")
		return
	}
	type listing struct {
		Ok       bool                  `json:"ok"`
		Attempts []domain.LoginAttempt `json:"attempts"`
	}
	response.JSON(w, r, http.StatusOK, listing{Ok: true, Attempts: attempts})
}
