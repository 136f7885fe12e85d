package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
)

const defaultListLimit = 50

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// handleReady reports whether the process can actually take a webhook:
// without redis there is no dedup slot and no safe processing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	ready := true

	if s.dedupCache == nil {
		components["redis"] = "not configured"
		ready = false
	} else if err := s.dedupCache.Ping(r.Context()); err != nil {
		components["redis"] = err.Error()
		ready = false
	} else {
		components["redis"] = "ok"
	}

	if s.auditStore == nil {
		components["audit_store"] = "disabled"
	} else {
		components["audit_store"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":      ready,
		"components": components,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	}
	if s.ring != nil {
		resp["recent_events"] = s.ring.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if s.auditStore == nil {
		writeError(w, http.StatusNotImplemented, "audit_disabled", "audit store not configured")
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		CorrelationID: q.Get("correlation_id"),
		Outcome:       q.Get("outcome"),
		Limit:         defaultListLimit,
	}
	if v := q.Get("ticket_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "ticket_id must be an integer")
			return
		}
		f.TicketID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", name+" must be RFC3339")
				return
			}
			*dst = ts
		}
	}

	events, err := s.auditStore.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if s.ring == nil {
		writeError(w, http.StatusNotImplemented, "audit_disabled", "audit ring not configured")
		return
	}
	n := defaultListLimit
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "n must be a positive integer")
			return
		}
		n = parsed
	}
	events := s.ring.Recent(n)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleAuditGet(w http.ResponseWriter, r *http.Request) {
	if s.auditStore == nil {
		writeError(w, http.StatusNotImplemented, "audit_disabled", "audit store not configured")
		return
	}
	ev, err := s.auditStore.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	if s.auditStore == nil {
		writeError(w, http.StatusNotImplemented, "audit_disabled", "audit store not configured")
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := s.auditStore.Verify(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    id,
		"valid": ok,
	})
}
