package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/geocontrol/internal/audit"
	"github.com/nerrad567/geocontrol/internal/measurement"
	"github.com/nerrad567/geocontrol/internal/network"
)

// sensorRefFrom reads the full sensor path from the route.
func sensorRefFrom(r *http.Request) measurement.SensorRef {
	return measurement.SensorRef{
		NetworkCode: chi.URLParam(r, "networkCode"),
		GatewayMAC:  chi.URLParam(r, "gatewayMac"),
		SensorMAC:   chi.URLParam(r, "sensorMac"),
	}
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.networks.ListSensors(r.Context(), chi.URLParam(r, "networkCode"), chi.URLParam(r, "gatewayMac"))
	if err != nil {
		s.writeServiceError(w, r, "list sensors", err)
		return
	}
	writeJSON(w, http.StatusOK, sensors)
}

func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var sensor network.Sensor
	if err := json.NewDecoder(r.Body).Decode(&sensor); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	code, gw := chi.URLParam(r, "networkCode"), chi.URLParam(r, "gatewayMac")
	if err := s.networks.CreateSensor(r.Context(), code, gw, &sensor); err != nil {
		s.writeServiceError(w, r, "create sensor", err)
		return
	}

	s.logger.Info("sensor created", "network", code, "gateway", gw, "sensor", sensor.MACAddress)
	s.recordAudit(r, audit.ActionCreate, audit.EntitySensor, entityPath(code, gw, sensor.MACAddress), nil)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	ref := sensorRefFrom(r)
	sensor, err := s.networks.GetSensor(r.Context(), ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC)
	if err != nil {
		s.writeServiceError(w, r, "get sensor", err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

func (s *Server) handleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	var u network.SensorUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ref := sensorRefFrom(r)
	if err := s.networks.UpdateSensor(r.Context(), ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC, u); err != nil {
		s.writeServiceError(w, r, "update sensor", err)
		return
	}

	s.logger.Info("sensor updated", "network", ref.NetworkCode, "gateway", ref.GatewayMAC, "sensor", ref.SensorMAC)
	s.recordAudit(r, audit.ActionUpdate, audit.EntitySensor, entityPath(ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC), changedFields(u))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	ref := sensorRefFrom(r)
	if err := s.networks.DeleteSensor(r.Context(), ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC); err != nil {
		s.writeServiceError(w, r, "delete sensor", err)
		return
	}

	s.logger.Info("sensor deleted", "network", ref.NetworkCode, "gateway", ref.GatewayMAC, "sensor", ref.SensorMAC)
	s.recordAudit(r, audit.ActionDelete, audit.EntitySensor, entityPath(ref.NetworkCode, ref.GatewayMAC, ref.SensorMAC), nil)
	w.WriteHeader(http.StatusNoContent)
}
