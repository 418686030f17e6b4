package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/trigger", s.app.JobHandler.TriggerJobHandler)
	mux.HandleFunc("/api/jobs/pause", s.app.JobHandler.PauseJobHandler)
	mux.HandleFunc("/api/jobs/resume", s.app.JobHandler.ResumeJobHandler)
	mux.HandleFunc("/api/jobs/failures", s.app.JobHandler.FailuresHandler)

	// API routes - Quotes
	mux.HandleFunc("/api/quotes/", s.app.QuoteHandler.GetQuoteHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
