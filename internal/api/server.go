package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vigilhq/vigil/internal/health"
	"github.com/vigilhq/vigil/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	monitor *health.Monitor
	audit   storage.AuditStorage
	server  *http.Server
}

// NewServer creates a new API server. audit may be nil when persistence
// is not configured; the audit and state endpoints then return 503.
func NewServer(monitor *health.Monitor, audit storage.AuditStorage, addr string) *Server {
	s := &Server{
		monitor: monitor,
		audit:   audit,
	}

	mux := http.NewServeMux()

	// Liveness endpoints
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReady)

	// Profile endpoints
	mux.HandleFunc("/v1/profiles", s.handleProfileList)
	mux.HandleFunc("/v1/profiles/", s.handleProfileGet)

	// Health report endpoint
	mux.HandleFunc("/v1/health", s.handleHealthReport)

	// Anomaly summary endpoint
	mux.HandleFunc("/v1/anomalies/summary", s.handleAnomalySummary)

	// Alert arbitration endpoint
	mux.HandleFunc("/v1/alerts/decision", s.handleAlertDecision)

	// Latest persisted state endpoint
	mux.HandleFunc("/v1/state/", s.handleState)

	// Audit endpoint
	mux.HandleFunc("/v1/audit", s.handleAudit)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady handles GET /readyz
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profiles := s.monitor.Profiles()

	ready := len(profiles) > 0
	reasons := []string{}

	if len(profiles) == 0 {
		reasons = append(reasons, "no profiles loaded")
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, ReadyResponse{
		Ready:          ready,
		ProfilesLoaded: len(profiles),
		Reasons:        reasons,
	})
}

// handleProfileList handles GET /v1/profiles
func (s *Server) handleProfileList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profiles := s.monitor.Profiles()

	summaries := make([]ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, ProfileSummary{
			ID:            p.Metadata.ID,
			Host:          p.Metadata.Host,
			Description:   p.Metadata.Description,
			CheckInterval: p.Spec.CheckInterval,
		})
	}

	respondJSON(w, http.StatusOK, ProfileListResponse{Profiles: summaries})
}

// handleProfileGet handles GET /v1/profiles/{id}
func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/profiles/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "profile ID required")
		return
	}

	for _, p := range s.monitor.Profiles() {
		if p.Metadata.ID == id {
			respondJSON(w, http.StatusOK, p)
			return
		}
	}

	respondError(w, http.StatusNotFound, fmt.Sprintf("profile not found: %s", id))
}

// handleHealthReport handles GET /v1/health?profile={id}&fresh=1
func (s *Server) handleHealthReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orchestrator, ok := s.resolveOrchestrator(w, r)
	if !ok {
		return
	}

	var report *health.Report
	if r.URL.Query().Get("fresh") == "1" {
		report = orchestrator.ForceCheck(r.Context())
	} else {
		report = orchestrator.CheckHealth(r.Context())
	}

	respondJSON(w, http.StatusOK, report)
}

// handleAnomalySummary handles GET /v1/anomalies/summary?profile={id}&window={seconds}
func (s *Server) handleAnomalySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orchestrator, ok := s.resolveOrchestrator(w, r)
	if !ok {
		return
	}

	windowSeconds := 0
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		window, err := strconv.Atoi(windowStr)
		if err != nil || window <= 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid window: %s", windowStr))
			return
		}
		windowSeconds = window
	}

	respondJSON(w, http.StatusOK, orchestrator.Detector().Summary(windowSeconds))
}

// handleAlertDecision handles POST /v1/alerts/decision
func (s *Server) handleAlertDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AlertDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if req.AlertType == "" {
		respondError(w, http.StatusBadRequest, "alertType required")
		return
	}

	orchestrator, ok := s.resolveOrchestratorByID(w, req.Profile)
	if !ok {
		return
	}

	decision := orchestrator.Arbiter().Decide(req.AlertType, req.Context)
	respondJSON(w, http.StatusOK, decision)
}

// handleState handles GET /v1/state/{id}
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/state/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "profile ID required")
		return
	}

	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit storage not configured")
		return
	}

	state, err := s.audit.GetLatestState(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get latest state: %v", err))
		return
	}
	if state == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no state found for profile: %s", id))
		return
	}

	respondJSON(w, http.StatusOK, StateResponse{
		ProfileID: state.ProfileID,
		Host:      state.Host,
		Status:    state.Status,
		Report:    state.Report,
		UpdatedAt: state.UpdatedAt,
	})
}

// handleAudit handles GET /v1/audit
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit storage not configured")
		return
	}

	query := r.URL.Query()
	filter := storage.AuditFilter{
		ProfileID: query.Get("profile"),
		Host:      query.Get("host"),
		Status:    query.Get("status"),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	if startTimeStr := query.Get("startTime"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filter.StartTime = &startTime
		}
	}

	if endTimeStr := query.Get("endTime"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filter.EndTime = &endTime
		}
	}

	records, err := s.audit.QueryAudit(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query audit: %v", err))
		return
	}

	responseRecords := make([]AuditRecordResponse, len(records))
	for i, record := range records {
		responseRecords[i] = AuditRecordResponse{
			ID:            record.ID,
			ProfileID:     record.ProfileID,
			Host:          record.Host,
			Status:        record.Status,
			IssueCount:    record.IssueCount,
			AlertCount:    record.AlertCount,
			RecoveryCount: record.RecoveryCount,
			Partial:       record.Partial,
			Report:        record.Report,
			Timestamp:     record.Timestamp,
			CreatedAt:     record.CreatedAt,
		}
	}

	respondJSON(w, http.StatusOK, AuditResponse{
		Records: responseRecords,
		Total:   len(responseRecords),
	})
}

// resolveOrchestrator finds the orchestrator for the ?profile= parameter,
// defaulting to the only profile when exactly one is loaded.
func (s *Server) resolveOrchestrator(w http.ResponseWriter, r *http.Request) (*health.Orchestrator, bool) {
	return s.resolveOrchestratorByID(w, r.URL.Query().Get("profile"))
}

func (s *Server) resolveOrchestratorByID(w http.ResponseWriter, id string) (*health.Orchestrator, bool) {
	if id == "" {
		profiles := s.monitor.Profiles()
		if len(profiles) == 1 {
			id = profiles[0].Metadata.ID
		} else {
			respondError(w, http.StatusBadRequest, "profile parameter required")
			return nil, false
		}
	}

	orchestrator := s.monitor.Orchestrator(id)
	if orchestrator == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("profile not found: %s", id))
		return nil, false
	}
	return orchestrator, true
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
