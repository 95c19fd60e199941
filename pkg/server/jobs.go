package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dasmlab/vaani/pkg/service"
	"github.com/go-chi/chi/v5"
)

const (
	// sseInterval is how often job progress is polled for SSE clients.
	sseInterval = 500 * time.Millisecond

	queueRetryAfterSeconds = 5
)

// handleCreateJob accepts the same form as /api/upload and translates it in the background.
func (s *HTTPServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	fileName, content, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	targetLanguage := r.FormValue("targetLanguage")
	if _, err := s.service.ResolveLanguage(targetLanguage); err != nil {
		s.fail(w, r, err)
		return
	}

	jobID, err := s.jobQueue.CreateJob(fileName, content, targetLanguage)
	if err != nil {
		if errors.Is(err, service.ErrQueueFull) {
			w.Header().Set("Retry-After", strconv.Itoa(queueRetryAfterSeconds))
		}
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/jobs/"+jobID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": string(service.JobStatusQueued),
	})
}

// handleJobStatus returns the current status of a translation job as JSON.
func (s *HTTPServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobQueue.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found.")
		return
	}

	writeJSON(w, http.StatusOK, jobView(job.Snapshot()))
}

// handleJobEvents provides Server-Sent Events (SSE) for job progress updates.
func (s *HTTPServer) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobQueue.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(sseInterval)
	defer ticker.Stop()

	snap := job.Snapshot()
	s.sendSSEEvent(w, "status", snap)
	if snap.Done() {
		return
	}

	lastStatus := snap.Status
	lastProgress := snap.ProgressPercent

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap := job.Snapshot()
			if snap.Status == lastStatus && snap.ProgressPercent == lastProgress {
				continue
			}

			s.sendSSEEvent(w, "status", snap)
			lastStatus = snap.Status
			lastProgress = snap.ProgressPercent

			if snap.Done() {
				return
			}
		}
	}
}

// sendSSEEvent writes one event in "event: <type>\ndata: <json>\n\n" form.
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, snap service.JobSnapshot) {
	event := jobView(snap)
	event["timestamp"] = time.Now().Format(time.RFC3339)

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal SSE event")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", data)

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// jobView is the JSON form of a job snapshot.
func jobView(snap service.JobSnapshot) map[string]any {
	view := map[string]any{
		"job_id":           snap.ID,
		"file_name":        snap.FileName,
		"target_language":  snap.TargetLanguage,
		"status":           string(snap.Status),
		"progress_percent": snap.ProgressPercent,
		"progress_message": snap.ProgressMessage,
		"created_at":       snap.CreatedAt.Format(time.RFC3339),
	}

	if snap.StartedAt != nil {
		view["started_at"] = snap.StartedAt.Format(time.RFC3339)
	}
	if snap.CompletedAt != nil {
		view["completed_at"] = snap.CompletedAt.Format(time.RFC3339)
	}
	if snap.Err != nil {
		code, message := statusFor(snap.Err)
		view["error"] = message
		view["error_status"] = code
	}
	if snap.Status == service.JobStatusCompleted && snap.Result != nil {
		view["result"] = snap.Result
	}

	return view
}
