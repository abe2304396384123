package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

// Profiler computes single-asset exposure profiles.
type Profiler interface {
	Profile(ctx context.Context, ticker string, p analysis.ProfileParams) (*analysis.AssetProfile, error)
}

// Scanner starts scans and reports their state.
type Scanner interface {
	Start(ctx context.Context, req scan.Request) (string, error)
	Status(ctx context.Context, id string) (*scan.Task, error)
}

type Config struct {
	RiskFreeRate  float64
	DefaultMaxDTE int
}

type Server struct {
	profiler Profiler
	scanner  Scanner
	config   Config
	logger   *zap.Logger
}

func NewServer(p Profiler, s Scanner, cfg Config, logger *zap.Logger) *Server {
	return &Server{
		profiler: p,
		scanner:  s,
		config:   cfg,
		logger:   logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type scanAccepted struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "quantdesk"})
}

// GetAssetProfile serves the exposure profile of one ticker.
func (s *Server) GetAssetProfile(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	maxDTE := s.config.DefaultMaxDTE
	if v := r.URL.Query().Get("max_dte"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid max_dte"})
			return
		}
		maxDTE = n
	}

	prof, err := s.profiler.Profile(r.Context(), ticker, analysis.ProfileParams{Rate: s.config.RiskFreeRate, MaxDTE: maxDTE})
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no data for " + ticker})
			return
		}
		s.logger.Error("profile failed", zap.String("ticker", ticker), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "profile computation failed"})
		return
	}

	writeJSON(w, http.StatusOK, prof.Finite())
}

// StartScan registers a background scan. An empty body uses defaults.
func (s *Server) StartScan(w http.ResponseWriter, r *http.Request) {
	var req scan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	id, err := s.scanner.Start(r.Context(), req)
	if err != nil {
		s.logger.Error("scan start failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not start scan"})
		return
	}

	writeJSON(w, http.StatusAccepted, scanAccepted{
		TaskID:  id,
		Status:  string(scan.StatusPending),
		Message: "scan started",
	})
}

// GetScanStatus serves the current state of a scan.
func (s *Server) GetScanStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")

	task, err := s.scanner.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, scan.ErrTaskNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "task not found"})
			return
		}
		s.logger.Error("scan status failed", zap.String("task_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not read task"})
		return
	}

	writeJSON(w, http.StatusOK, sanitizeTask(task))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
