package api

import (
	"net/http"
)

// handleDashboard returns the aggregated analytics dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Dashboard(r.Context(), r.URL.Query().Get("timeframe"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
