package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/internal/warehouse/pipeline"
	"github.com/nordwatt/energydwh/pkg/database"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// OpsHandler serves the operations endpoints: health, run summaries and
// manual pipeline triggers.
type OpsHandler struct {
	db       *database.DB
	runner   *pipeline.Runner
	runStore contracts.RunStore
	logger   *logger.Logger
}

// NewOpsHandler creates the ops handler.
func NewOpsHandler(db *database.DB, runner *pipeline.Runner, runStore contracts.RunStore, log *logger.Logger) *OpsHandler {
	return &OpsHandler{
		db:       db,
		runner:   runner,
		runStore: runStore,
		logger:   log,
	}
}

// Health reports service and database health.
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, err := h.db.HealthCheck(r.Context())

	code := http.StatusOK
	text := "ok"
	if err != nil || !status.Healthy {
		code = http.StatusServiceUnavailable
		text = "degraded"
	}

	writeJSON(w, code, map[string]interface{}{
		"status":   text,
		"service":  "energydwh",
		"database": status,
	})
}

// LatestRun returns the most recent pipeline run summary.
func (h *OpsHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runStore.LatestRun(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// LatestQuality returns the quality report of the most recent run.
func (h *OpsHandler) LatestQuality(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runStore.LatestRun(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	if summary == nil || summary.Quality == nil {
		writeError(w, http.StatusNotFound, "no quality report recorded")
		return
	}

	writeJSON(w, http.StatusOK, summary.Quality)
}

// triggerRequest is the manual-run request body. Dates are YYYY-MM-DD;
// the window is end-exclusive. Datasets defaults to all.
type triggerRequest struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Datasets []string `json:"datasets,omitempty"`
}

// TriggerRun starts a pipeline run in the background and returns 202.
// Overlapping runs on the same window are the caller's responsibility
// to serialize.
func (h *OpsHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	window, err := parseWindow(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var datasets []contracts.Dataset
	for _, name := range req.Datasets {
		ds, err := contracts.ParseDataset(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		datasets = append(datasets, ds)
	}

	go func() {
		// Detached from the request; the run outlives the response.
		if _, err := h.runner.Run(context.Background(), window, datasets); err != nil {
			h.logger.WithError(err).Error("Triggered run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "accepted",
		"window":   window.String(),
		"datasets": req.Datasets,
	})
}

func parseWindow(start, end string) (contracts.DateWindow, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return contracts.DateWindow{}, contracts.NewConfigurationError("invalid start date: %s", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return contracts.DateWindow{}, contracts.NewConfigurationError("invalid end date: %s", end)
	}

	window := contracts.DateWindow{Start: s, End: e}
	return window, window.Validate()
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
