package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/aristath/bojops/internal/work"
	"github.com/rs/zerolog"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":     "healthy",
		"version":    "1.0.0",
		"service":    "bojops",
		"operations": s.service.Collection().Len(),
	}

	writeJSON(w, s.log, http.StatusOK, response)
}

// handleRefresh starts a refresh. With wait=true the response carries the
// refresh result; otherwise the refresh runs in the background and progress
// is available on the event streams.
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.service.Running() {
		writeError(w, s.log, http.StatusConflict, work.ErrRefreshInProgress)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		res, err := s.service.Refresh(r.Context(), "api")
		switch {
		case errors.Is(err, work.ErrRefreshInProgress):
			writeError(w, s.log, http.StatusConflict, err)
		case err != nil && res == nil:
			writeError(w, s.log, http.StatusBadGateway, err)
		default:
			s.operations.Invalidate()
			if err != nil {
				s.log.Warn().Err(err).Msg("Refresh completed with errors")
			}
			writeJSON(w, s.log, http.StatusOK, res)
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.service.Refresh(s.baseCtx, "api"); err != nil {
			s.log.Error().Err(err).Msg("Background refresh failed")
		}
	}()
	writeJSON(w, s.log, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleReport serves the last rendered report. With render=true the report
// is rendered from the current collection first.
// GET /api/report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	path := s.service.ReportPath()

	if render, _ := strconv.ParseBool(r.URL.Query().Get("render")); render {
		report, err := s.service.Report(r.Context())
		if errors.Is(err, work.ErrNoOperations) {
			writeError(w, s.log, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, s.log, http.StatusInternalServerError, err)
			return
		}
		path = report.Path
	}

	if _, err := os.Stat(path); err != nil {
		writeError(w, s.log, http.StatusNotFound, errors.New("report not rendered yet"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes {"error": msg} with status
func writeError(w http.ResponseWriter, log zerolog.Logger, status int, err error) {
	writeJSON(w, log, status, map[string]string{"error": err.Error()})
}
