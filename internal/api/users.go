package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

// UsersHandler manages the admin-panel accounts. Every route is admin only.
type UsersHandler struct {
	DB     *db.DB
	Logger *zap.Logger
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// hashPassword enforces the password rules and returns the bcrypt hash. The
// returned error is safe to show to the client.
func hashPassword(password string) (string, error) {
	if err := model.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}
	return string(hash), nil
}

// List handles GET /api/admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/admin/users. The role defaults to editor.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username, err := model.NormalizeUsername(req.Username)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	role := req.Role
	if role == "" {
		role = model.RoleEditor
	}
	if !model.ValidRole(role) {
		jsonError(w, http.StatusBadRequest, "role must be admin or editor")
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, username, hash, role)
	if err != nil {
		storeError(w, h.Logger, err, "failed to create user")
		return
	}

	h.audit(r, "user created", zap.String("target", username), zap.String("role", role))
	jsonResponse(w, http.StatusCreated, user)
}

// Update handles PUT /api/admin/users/{id}, which only changes the role.
// Admins cannot change their own role so at least one admin always remains.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "role must be admin or editor")
		return
	}
	if claims := GetClaims(r.Context()); claims.UserID() == id && req.Role != claims.Role {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
		storeError(w, h.Logger, err, "user")
		return
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil {
		storeError(w, h.Logger, err, "failed to get user")
		return
	}

	h.audit(r, "user role changed", zap.String("target", user.Username), zap.String("role", req.Role))
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/admin/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
		storeError(w, h.Logger, err, "user")
		return
	}

	h.audit(r, "user password reset", zap.String("target_id", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/admin/users/{id}. Users are soft-deleted and
// cannot delete themselves.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if claims := GetClaims(r.Context()); claims != nil && claims.UserID() == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		storeError(w, h.Logger, err, "user")
		return
	}

	h.audit(r, "user deleted", zap.String("target_id", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// audit logs an account change together with the admin who made it.
func (h *UsersHandler) audit(r *http.Request, msg string, fields ...zap.Field) {
	if claims := GetClaims(r.Context()); claims != nil {
		fields = append(fields, zap.String("by", claims.Username))
	}
	h.Logger.Info(msg, fields...)
}
