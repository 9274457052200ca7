package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evanrobinson2/olisync/internal/logging"
	"github.com/evanrobinson2/olisync/internal/params"
	"github.com/evanrobinson2/olisync/internal/salesforce"
	"github.com/evanrobinson2/olisync/internal/sync"
)

// ErrorResponse is the JSON body returned for failed runs.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync executes one synchronization run and returns its summary.
// Per-record batch failures ride inside a 200 summary; only fatal run
// errors map to error statuses.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	logger.Info("sync run requested")

	summary, err := s.runner.Run(r.Context())
	if err != nil {
		status, code := classify(err)
		logger.Error("sync run failed", "error", err, "code", code)
		respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// classify maps a fatal run error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	var (
		parseErr  *params.ParseError
		configErr *params.ConfigurationError
		parentErr *sync.MissingParentError
		authErr   *salesforce.AuthError
	)
	switch {
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity, "PARSE"
	case errors.As(err, &configErr):
		return http.StatusUnprocessableEntity, "CONFIG"
	case errors.As(err, &parentErr):
		return http.StatusUnprocessableEntity, "MISSING_PARENT"
	case errors.As(err, &authErr):
		return http.StatusBadGateway, "AUTH"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
