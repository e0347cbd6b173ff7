package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/geocontrol/internal/audit"
	"github.com/nerrad567/geocontrol/internal/auth"
)

type createUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     auth.Role `json:"type"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Role == "" {
		writeBadRequest(w, "username, password and type are required")
		return
	}
	if !auth.IsValidRole(req.Role) {
		writeBadRequest(w, "type must be one of admin, operator, viewer")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeServiceError(w, r, "create user", err)
		return
	}

	user := &auth.User{Username: req.Username, Role: req.Role, PasswordHash: hash}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.writeServiceError(w, r, "create user", err)
		return
	}

	s.logger.Info("user created", "username", user.Username, "role", user.Role, "created_by", claimsFromContext(r.Context()).Subject)
	s.recordAudit(r, audit.ActionCreate, audit.EntityUser, user.Username, map[string]any{"type": string(user.Role)})
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByUsername(r.Context(), chi.URLParam(r, "userName"))
	if err != nil {
		s.writeServiceError(w, r, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "userName")
	if err := s.users.Delete(r.Context(), username); err != nil {
		s.writeServiceError(w, r, "delete user", err)
		return
	}

	s.logger.Info("user deleted", "username", username, "deleted_by", claimsFromContext(r.Context()).Subject)
	s.recordAudit(r, audit.ActionDelete, audit.EntityUser, username, nil)
	w.WriteHeader(http.StatusNoContent)
}
