package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/qbbc/clubadmin/internal/model"
	"github.com/qbbc/clubadmin/internal/overlay"
	"github.com/qbbc/clubadmin/internal/store"
)

type AdminAccountHandler struct {
	overlay  *overlay.Service
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAdminAccountHandler(svc *overlay.Service, sessions *store.SessionStore, logger *slog.Logger) *AdminAccountHandler {
	return &AdminAccountHandler{overlay: svc, sessions: sessions, logger: logger}
}

func (h *AdminAccountHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redactAccounts(h.overlay.Accounts()))
}

func (h *AdminAccountHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redactMembers(h.overlay.Candidates()))
}

type assignRequest struct {
	MemberID string `json:"memberId"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AdminAccountHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	account, err := h.overlay.Assign(req.MemberID, req.Username, req.Password, req.Role)
	if err != nil {
		h.writeOverlayError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, redactAccount(*account))
}

func (h *AdminAccountHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := h.overlay.Revoke(id)
	if err != nil {
		h.writeOverlayError(w, err)
		return
	}

	// Revoked credentials must stop working immediately.
	if err := h.sessions.DeleteByUsername(removed.Username); err != nil {
		h.logger.Error("close revoked sessions", "username", removed.Username, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminAccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req overlay.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	account, err := h.overlay.Edit(id, req)
	if err != nil {
		h.writeOverlayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redactAccount(*account))
}

func (h *AdminAccountHandler) writeOverlayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, overlay.ErrMemberRequired),
		errors.Is(err, overlay.ErrUsernameRequired),
		errors.Is(err, overlay.ErrPasswordRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, overlay.ErrUsernameTaken), errors.Is(err, overlay.ErrMemberAlreadyLinked):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, overlay.ErrMemberNotFound), errors.Is(err, overlay.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("admin account operation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// redactAccount strips the stored credential hash from an API response.
func redactAccount(a model.AdminAccount) model.AdminAccount {
	a.PasswordHash = ""
	return a
}

func redactAccounts(accounts []model.AdminAccount) []model.AdminAccount {
	out := make([]model.AdminAccount, len(accounts))
	for i, a := range accounts {
		out[i] = redactAccount(a)
	}
	return out
}
