package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/observability"
	"github.com/probelink/probelink/internal/repository"
	"github.com/probelink/probelink/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type loginResponse struct {
	Ok        bool   `json:"ok"`
	Token     string `json:"token"`
	IsTrusted bool   `json:"is_trusted"`
}

type blockedResponse struct {
	Ok        bool   `json:"ok"`
	Error     string `json:"error"`
	RemainSec int    `json:"remain_sec"`
}

// AuthHandler owns the login endpoint: guard check first, then session
// issuance, with every attempt recorded in the audit trail.
type AuthHandler struct {
	guard   *service.LoginGuard
	store   *service.SessionStore
	history repository.LoginHistoryRepository
	logger  *slog.Logger
}

func NewAuthHandler(guard *service.LoginGuard, store *service.SessionStore, history repository.LoginHistoryRepository, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{guard: guard, store: store, history: history, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, r, http.StatusBadRequest, "malformed_request")
		return
	}

	decision := h.guard.Attempt(req.Username, req.Password)
	h.record(r, req, decision.Outcome)
	observability.RecordLoginAttempt(string(decision.Outcome))

	switch decision.Outcome {
	case service.LoginBlocked, service.LoginBlockedJustNow:
		observability.Audit(r, "login_blocked", "remain_sec", decision.RemainSec)
		response.JSON(w, r, http.StatusForbidden, blockedResponse{Error: "blocked", RemainSec: decision.RemainSec})
		return
	case service.LoginInvalid:
		// No detail about which field was wrong.
		response.Fail(w, r, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, trusted := h.store.Login(service.LoginMetadata{
		DeviceID:      req.DeviceID,
		UserAgent:     r.UserAgent(),
		SourceAddress: r.RemoteAddr,
	})
	observability.Audit(r, "login_accepted", "trusted", trusted)
	response.JSON(w, r, http.StatusOK, loginResponse{Ok: true, Token: token, IsTrusted: trusted})
}

func (h *AuthHandler) record(r *http.Request, req loginRequest, outcome service.LoginOutcome) {
	if h.history == nil {
		return
	}
	err := h.history.Record(&domain.LoginAttempt{
		Username:      req.Username,
		DeviceID:      req.DeviceID,
		UserAgent:     r.UserAgent(),
		SourceAddress: r.RemoteAddr,
		Outcome:       string(outcome),
	})
	if err != nil {
		h.logger.Warn("login history record failed", "error", err)
	}
}
