package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/geocontrol/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin exchanges credentials for an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := auth.Authenticate(r.Context(), s.users, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeNotFound(w, "user not found")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, "invalid username or password")
		default:
			s.writeServiceError(w, r, "login", err)
		}
		return
	}

	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		s.writeServiceError(w, r, "issue token", err)
		return
	}

	s.logger.Info("user logged in", "username", user.Username, "role", user.Role)
	s.recordLogin(r, user.Username)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
