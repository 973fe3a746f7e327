// Package httpapi exposes the analyzer over HTTP: an analysis endpoint,
// health and metrics, and a websocket feed of progress events.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/analyzer"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/observability"
	"github.com/HSfac/token-buyer-analyze/internal/reporting"
)

// Server routes HTTP requests to the analyzer.
type Server struct {
	analyzer *analyzer.Analyzer
	hub      *Hub
	logger   *log.Logger
}

// NewServer creates a server over the given analyzer. The hub is optional;
// without one the websocket endpoint is not registered.
func NewServer(a *analyzer.Analyzer, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{analyzer: a, hub: hub, logger: logger}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /analyze/{token}", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	if s.hub != nil {
		mux.HandleFunc("GET /ws/progress", s.hub.Handler())
	}
	return mux
}

// handleAnalyze runs one analysis. Query parameters: start_time and end_time
// as RFC3339, limit as an integer, format as json (default), csv or markdown.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req := analyzer.Request{Token: r.PathValue("token")}
	q := r.URL.Query()

	if raw := q.Get("start_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid start_time: %v", err))
			return
		}
		req.StartTime = t
	}
	if raw := q.Get("end_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid end_time: %v", err))
			return
		}
		req.EndTime = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
			return
		}
		req.Limit = n
	}

	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json", "csv", "markdown":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	report, err := s.analyzer.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, req.Token, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderCSV(report)))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown")
		w.Write([]byte(reporting.RenderMarkdown(report)))
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// writeRunError maps analyzer errors to status codes. Invalid input is the
// caller's fault; upstream outages surface as 502 so clients can retry.
func (s *Server) writeRunError(w http.ResponseWriter, token string, err error) {
	switch {
	case errors.Is(err, analyzer.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, helius.ErrRateLimited),
		errors.Is(err, helius.ErrSourceUnavailable),
		errors.Is(err, helius.ErrAuthentication):
		s.logger.Printf("token %s: upstream failure: %v", token, err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Printf("token %s: analysis failed: %v", token, err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
