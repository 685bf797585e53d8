package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/pipeline"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// ArtifactReader reads persisted pipeline artifacts
type ArtifactReader interface {
	GetSignalsByCompany(ctx context.Context, company string) ([]contracts.Signal, error)
	GetAlphaResultsByCompany(ctx context.Context, company string) ([]contracts.AlphaResult, error)
	GetReport(ctx context.Context, runID, company string) (*contracts.CompanyReport, error)
}

// RunStarter launches a full pipeline run
type RunStarter interface {
	Run(ctx context.Context, runID string) (*contracts.RunReport, error)
}

// PipelineHandler handles pipeline-related API endpoints
// SSOT: pipeline API handlers live here only
type PipelineHandler struct {
	reader ArtifactReader
	runner RunStarter
	logger *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(reader ArtifactReader, runner RunStarter, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		reader: reader,
		runner: runner,
		logger: log,
	}
}

// TriggerRun starts a pipeline run in the background and returns its
// run ID immediately. Progress streams over the /ws/runs feed.
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline runner not configured")
		return
	}

	runID := pipeline.NewRunID(time.Now())

	// Detached from the request context so the run survives the
	// client disconnecting.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if _, err := h.runner.Run(ctx, runID); err != nil {
			h.logger.WithError(err).WithField("run_id", runID).Error("Triggered run failed")
		}
	}()

	h.logger.WithField("run_id", runID).Info("Pipeline run triggered via API")

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "started",
	})
}

// GetSignals returns persisted signals for a company
func (h *PipelineHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	company := mux.Vars(r)["company"]

	signals, err := h.reader.GetSignalsByCompany(r.Context(), company)
	if err != nil {
		h.logger.WithError(err).WithField("company", company).Error("Failed to load signals")
		writeError(w, http.StatusInternalServerError, "failed to load signals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company": company,
		"count":   len(signals),
		"signals": signals,
	})
}

// GetAlphaResults returns persisted alpha results for a company
func (h *PipelineHandler) GetAlphaResults(w http.ResponseWriter, r *http.Request) {
	company := mux.Vars(r)["company"]

	results, err := h.reader.GetAlphaResultsByCompany(r.Context(), company)
	if err != nil {
		h.logger.WithError(err).WithField("company", company).Error("Failed to load alpha results")
		writeError(w, http.StatusInternalServerError, "failed to load alpha results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company": company,
		"count":   len(results),
		"results": results,
	})
}

// GetReport returns one persisted company run report
func (h *PipelineHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID, company := vars["runID"], vars["company"]

	report, err := h.reader.GetReport(r.Context(), runID, company)
	if err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
