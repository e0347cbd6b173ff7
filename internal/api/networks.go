package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/geocontrol/internal/audit"
	"github.com/nerrad567/geocontrol/internal/network"
)

func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := s.networks.ListNetworks(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list networks", err)
		return
	}
	writeJSON(w, http.StatusOK, networks)
}

func (s *Server) handleCreateNetwork(w http.ResponseWriter, r *http.Request) {
	var n network.Network
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.networks.CreateNetwork(r.Context(), &n); err != nil {
		s.writeServiceError(w, r, "create network", err)
		return
	}

	s.logger.Info("network created", "network", n.Code)
	s.recordAudit(r, audit.ActionCreate, audit.EntityNetwork, n.Code, nil)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	n, err := s.networks.GetNetwork(r.Context(), chi.URLParam(r, "networkCode"))
	if err != nil {
		s.writeServiceError(w, r, "get network", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpdateNetwork(w http.ResponseWriter, r *http.Request) {
	var u network.NetworkUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	code := chi.URLParam(r, "networkCode")
	if err := s.networks.UpdateNetwork(r.Context(), code, u); err != nil {
		s.writeServiceError(w, r, "update network", err)
		return
	}

	s.logger.Info("network updated", "network", code)
	s.recordAudit(r, audit.ActionUpdate, audit.EntityNetwork, code, changedFields(u))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNetwork(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "networkCode")
	if err := s.networks.DeleteNetwork(r.Context(), code); err != nil {
		s.writeServiceError(w, r, "delete network", err)
		return
	}

	s.logger.Info("network deleted", "network", code)
	s.recordAudit(r, audit.ActionDelete, audit.EntityNetwork, code, nil)
	w.WriteHeader(http.StatusNoContent)
}
