package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/qbbc/clubadmin/internal/middleware"
	"github.com/qbbc/clubadmin/internal/overlay"
	"github.com/qbbc/clubadmin/internal/store"
)

type AuthHandler struct {
	overlay  *overlay.Service
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAuthHandler(svc *overlay.Service, sessions *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{overlay: svc, sessions: sessions, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	MemberID    string `json:"memberId,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	identity, err := h.overlay.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, overlay.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		h.logger.Error("authenticate", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	sess, err := h.sessions.Create(identity.Username, identity.Role, identity.DisplayName, identity.MemberID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})

	h.logger.Info("login", "username", identity.Username, "role", identity.Role)
	writeJSON(w, http.StatusOK, loginResponse{
		Username:    identity.Username,
		Role:        identity.Role,
		DisplayName: identity.DisplayName,
		MemberID:    identity.MemberID,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteByToken(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
