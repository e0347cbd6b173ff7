package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/geocontrol/internal/audit"
	"github.com/nerrad567/geocontrol/internal/network"
)

func (s *Server) handleListGateways(w http.ResponseWriter, r *http.Request) {
	gateways, err := s.networks.ListGateways(r.Context(), chi.URLParam(r, "networkCode"))
	if err != nil {
		s.writeServiceError(w, r, "list gateways", err)
		return
	}
	writeJSON(w, http.StatusOK, gateways)
}

func (s *Server) handleCreateGateway(w http.ResponseWriter, r *http.Request) {
	var g network.Gateway
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	code := chi.URLParam(r, "networkCode")
	if err := s.networks.CreateGateway(r.Context(), code, &g); err != nil {
		s.writeServiceError(w, r, "create gateway", err)
		return
	}

	s.logger.Info("gateway created", "network", code, "gateway", g.MACAddress)
	s.recordAudit(r, audit.ActionCreate, audit.EntityGateway, entityPath(code, g.MACAddress), nil)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetGateway(w http.ResponseWriter, r *http.Request) {
	g, err := s.networks.GetGateway(r.Context(), chi.URLParam(r, "networkCode"), chi.URLParam(r, "gatewayMac"))
	if err != nil {
		s.writeServiceError(w, r, "get gateway", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGateway(w http.ResponseWriter, r *http.Request) {
	var u network.GatewayUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	code, mac := chi.URLParam(r, "networkCode"), chi.URLParam(r, "gatewayMac")
	if err := s.networks.UpdateGateway(r.Context(), code, mac, u); err != nil {
		s.writeServiceError(w, r, "update gateway", err)
		return
	}

	s.logger.Info("gateway updated", "network", code, "gateway", mac)
	s.recordAudit(r, audit.ActionUpdate, audit.EntityGateway, entityPath(code, mac), changedFields(u))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGateway(w http.ResponseWriter, r *http.Request) {
	code, mac := chi.URLParam(r, "networkCode"), chi.URLParam(r, "gatewayMac")
	if err := s.networks.DeleteGateway(r.Context(), code, mac); err != nil {
		s.writeServiceError(w, r, "delete gateway", err)
		return
	}

	s.logger.Info("gateway deleted", "network", code, "gateway", mac)
	s.recordAudit(r, audit.ActionDelete, audit.EntityGateway, entityPath(code, mac), nil)
	w.WriteHeader(http.StatusNoContent)
}
