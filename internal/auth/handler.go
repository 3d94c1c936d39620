package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datafirstseo/booking-backend/internal/http/middleware"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// Handler exposes the login and password reset endpoints.
type Handler struct {
	service      *Service
	logger       *logging.Logger
	cookieDomain string
	secureCookie bool
}

// NewHandler creates an auth handler. secureCookie should be true
// outside local development.
func NewHandler(service *Service, logger *logging.Logger, cookieDomain string, secureCookie bool) *Handler {
	if service == nil {
		panic("auth: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:      service,
		logger:       logger,
		cookieDomain: cookieDomain,
		secureCookie: secureCookie,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// LoginRequest carries the login form.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and establishes a session.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("login failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, h.sessionCookie(token, int(h.service.SessionTTL().Seconds())))
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

// Logout clears the session cookie.
// POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// CurrentUser returns the authenticated user.
// GET /api/user
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.SessionClaimsFromContext(r.Context())
	if !ok {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	user, err := h.service.CurrentUser(r.Context(), claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		jsonError(w, "user no longer exists", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("current user lookup failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ForgotPasswordRequest carries the reset request form.
type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

// ForgotPassword issues a reset token. The response is identical for
// known and unknown accounts.
// POST /api/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.service.RequestReset(r.Context(), req.Username); err != nil {
		h.logger.Error("reset request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if that account exists, a reset link has been sent",
	})
}

// ResetPasswordRequest carries the reset completion form.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes a reset token and sets the new password.
// POST /api/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if errors.Is(err, ErrInvalidResetToken) {
		jsonError(w, "invalid or expired reset token", http.StatusBadRequest)
		return
	}
	if errors.Is(err, ErrWeakPassword) {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("password reset failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
