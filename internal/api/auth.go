package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/turtlealbum/internal/auth"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

// AuthHandler serves login, logout and the current account.
type AuthHandler struct {
	DB     *db.DB
	Tokens *auth.Issuer
	Logger *zap.Logger
}

// dummyHash is compared against when the username is unknown so failed
// logins take the same time either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("turtlealbum-dummy"), bcrypt.DefaultCost)

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, username)
	if err != nil {
		h.Logger.Error("looking up user", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	hash := dummyHash
	if user.Active() {
		hash = []byte(user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil || !user.Active() {
		h.Logger.Warn("login failed", zap.String("username", username), zap.String("remote", r.RemoteAddr))
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expires, err := h.Tokens.Issue(user)
	if err != nil {
		h.Logger.Error("issuing token", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	h.Logger.Info("user logged in", zap.String("user", user.Username), zap.String("role", user.Role))
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: user})
}

// Logout handles POST /api/auth/logout. The token id stays revoked until
// the token would have expired anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.Expiry()); err != nil {
		h.Logger.Error("revoking token", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	h.Logger.Info("user logged out", zap.String("user", claims.Username))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// currentUser loads the account behind the request's token. Accounts
// deleted after the token was issued get 401.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := store.GetUser(r.Context(), h.DB, GetClaims(r.Context()).UserID())
	if err != nil {
		h.Logger.Error("getting current user", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if !user.Active() {
		jsonError(w, http.StatusUnauthorized, "user no longer exists")
		return nil, false
	}
	return user, true
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.currentUser(w, r); ok {
		jsonResponse(w, http.StatusOK, user)
	}
}

// ChangePassword handles PUT /api/auth/password. The current password must
// be given again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		storeError(w, h.Logger, err, "failed to update password")
		return
	}

	h.Logger.Info("user changed own password", zap.String("user", user.Username))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
