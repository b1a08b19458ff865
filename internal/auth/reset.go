package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/clickmoment/clickmoment/internal/httputil"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenDuration = time.Hour

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ForgotPassword always answers 200 so the endpoint cannot be used to probe
// which emails have accounts.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}

	resp := messageResponse{Message: "if that account exists, a reset email is on its way"}

	var userID, name string
	err := h.db.QueryRow(r.Context(),
		"SELECT id, name FROM users WHERE email = $1", req.Email,
	).Scan(&userID, &name)
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, resp)
		return
	}

	token, err := newResetToken()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate reset token")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		"INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)",
		hashResetToken(token), userID, time.Now().Add(resetTokenDuration),
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store reset token")
		return
	}

	if h.emailSender != nil {
		resetLink := h.baseURL + "/reset-password?token=" + token
		if err := h.emailSender.SendPasswordReset(r.Context(), req.Email, name, resetLink); err != nil {
			slog.Error("failed to send password reset email", "error", err)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" {
		httputil.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	if msg := passwordPolicy(req.Password); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var userID string
	var expiresAt time.Time
	var used bool
	err := h.db.QueryRow(r.Context(),
		"SELECT user_id, expires_at, used FROM password_resets WHERE token_hash = $1",
		hashResetToken(req.Token),
	).Scan(&userID, &expiresAt, &used)
	if err != nil || used || time.Now().After(expiresAt) {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired reset token")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		"UPDATE users SET password = $1 WHERE id = $2", string(hashedPassword), userID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		"UPDATE password_resets SET used = true WHERE token_hash = $1", hashResetToken(req.Token),
	); err != nil {
		slog.Error("failed to mark reset token used", "error", err)
	}

	// All sessions die with the old password.
	if _, err := h.db.Exec(r.Context(),
		"UPDATE refresh_tokens SET revoked = true, revoked_at = now() WHERE user_id = $1", userID,
	); err != nil {
		slog.Error("failed to revoke refresh tokens after reset", "error", err)
	}

	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func newResetToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
