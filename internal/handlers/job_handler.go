package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/services/scheduler"
)

// JobHandler handles scheduled job API requests
type JobHandler struct {
	scheduler *scheduler.Service
	logger    arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(schedulerService *scheduler.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		scheduler: schedulerService,
		logger:    logger,
	}
}

// ListJobsHandler returns every registered job with schedule, next run and
// health counters
// GET /api/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	statuses := h.scheduler.JobStatuses()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":    statuses,
		"count":   len(statuses),
		"running": h.scheduler.IsRunning(),
	})
}

// TriggerJobHandler fires a job immediately, outside its schedule
// POST /api/jobs/trigger {"name": "candlesticks"}
func (h *JobHandler) TriggerJobHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := h.jobName(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.TriggerJob(name); err != nil {
		h.logger.Warn().Err(err).Str("job", name).Msg("Failed to trigger job")
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteStarted(w, "Job "+name+" triggered")
}

// PauseJobHandler pauses a job; scheduled firings are skipped until resume
// POST /api/jobs/pause {"name": "delivery"}
func (h *JobHandler) PauseJobHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := h.jobName(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.PauseJob(name); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteSuccess(w, "Job "+name+" paused")
}

// ResumeJobHandler resumes a paused job and clears its failure streak
// POST /api/jobs/resume {"name": "delivery"}
func (h *JobHandler) ResumeJobHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := h.jobName(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.ResumeJob(name); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteSuccess(w, "Job "+name+" resumed")
}

// FailuresHandler returns recent persisted job failures
// GET /api/jobs/failures?limit=20
func (h *JobHandler) FailuresHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	failures, err := h.scheduler.RecentFailures(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load recent failures")
		WriteError(w, http.StatusInternalServerError, "Failed to load recent failures")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"failures": failures,
		"count":    len(failures),
	})
}

// jobName reads the job name from a POST body.
func (h *JobHandler) jobName(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !RequireMethod(w, r, "POST") {
		return "", false
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		WriteError(w, http.StatusBadRequest, "Job name is required")
		return "", false
	}
	return req.Name, true
}
