package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/geocontrol/internal/audit"
)

// recordAudit stores a management action. Failures are logged and never
// fail the request that caused them.
func (s *Server) recordAudit(r *http.Request, action, entityType, entityID string, details map[string]any) {
	username := ""
	if claims := claimsFromContext(r.Context()); claims != nil {
		username = claims.Subject
	}
	s.writeAudit(r, &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Username:   username,
		Details:    details,
	})
}

// recordLogin stores a successful login. The request carries no claims yet.
func (s *Server) recordLogin(r *http.Request, username string) {
	s.writeAudit(r, &audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   username,
		Username:   username,
	})
}

func (s *Server) writeAudit(r *http.Request, entry *audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(r.Context(), entry); err != nil {
		s.logger.Warn("audit record failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
	}
}

// changedFields returns the fields a partial update actually sets.
func changedFields(update any) map[string]any {
	data, err := json.Marshal(update)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
		}
	}
	return fields
}

// entityPath joins hierarchy identifiers, e.g. NET01/GW:01/S:01.
func entityPath(ids ...string) string {
	return strings.Join(ids, "/")
}

// handleListAudit returns a page of the audit trail.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit trail is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		Username:   q.Get("username"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, "list audit", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
