package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned when the queue is at its active or stored job limit.
var ErrQueueFull = errors.New("job queue is full")

const (
	DefaultMaxActiveJobs = 16
	DefaultMaxStoredJobs = 1000
)

// TranslationJobStatus represents the status of a translation job.
type TranslationJobStatus string

const (
	JobStatusQueued     TranslationJobStatus = "queued"
	JobStatusProcessing TranslationJobStatus = "processing"
	JobStatusCompleted  TranslationJobStatus = "completed"
	JobStatusFailed     TranslationJobStatus = "failed"
)

// TranslationJob represents an asynchronous upload translation.
type TranslationJob struct {
	ID        string
	FileName  string
	CreatedAt time.Time

	// Request data
	TargetLanguage string
	content        []byte

	mu sync.RWMutex

	status          TranslationJobStatus
	startedAt       *time.Time
	completedAt     *time.Time
	err             error
	result          *UploadResult
	progressPercent int32
	progressMessage string
}

// JobSnapshot is a consistent copy of a job's mutable state.
type JobSnapshot struct {
	ID              string
	FileName        string
	TargetLanguage  string
	Status          TranslationJobStatus
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Err             error
	Result          *UploadResult
	ProgressPercent int32
	ProgressMessage string
}

// Done reports whether the job reached a final status.
func (s JobSnapshot) Done() bool {
	return s.Status == JobStatusCompleted || s.Status == JobStatusFailed
}

// JobQueue manages asynchronous translation jobs.
type JobQueue struct {
	jobs      map[string]*TranslationJob
	jobsMu    sync.RWMutex
	logger    *logrus.Logger
	processor *JobProcessor

	maxActive int
	maxStored int
}

// NewJobQueue creates a new job queue.
func NewJobQueue(logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}

	return &JobQueue{
		jobs:      make(map[string]*TranslationJob),
		logger:    logger,
		maxActive: DefaultMaxActiveJobs,
		maxStored: DefaultMaxStoredJobs,
	}
}

// SetLimits bounds the jobs that may be pending at once and the jobs kept in memory.
// Values below 1 keep the current limit.
func (q *JobQueue) SetLimits(maxActive, maxStored int) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	if maxActive > 0 {
		q.maxActive = maxActive
	}
	if maxStored > 0 {
		q.maxStored = maxStored
	}
}

// SetProcessor sets the job processor for this queue.
func (q *JobQueue) SetProcessor(processor *JobProcessor) {
	q.processor = processor
}

// CreateJob stores a new job and starts processing it if a processor is set.
func (q *JobQueue) CreateJob(fileName string, content []byte, targetLanguage string) (string, error) {
	if len(content) == 0 {
		return "", ErrMissingFile
	}

	jobID := uuid.New().String()

	job := &TranslationJob{
		ID:              jobID,
		FileName:        fileName,
		CreatedAt:       time.Now(),
		TargetLanguage:  targetLanguage,
		content:         content,
		status:          JobStatusQueued,
		progressMessage: "Queued",
	}

	q.jobsMu.Lock()
	if err := q.admitLocked(); err != nil {
		q.jobsMu.Unlock()
		q.logger.WithError(err).WithFields(logrus.Fields{
			"file_name":  fileName,
			"max_active": q.maxActive,
			"max_stored": q.maxStored,
		}).Warn("Rejected translation job")
		return "", err
	}
	q.jobs[jobID] = job
	q.jobsMu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"job_id":          jobID,
		"file_name":       fileName,
		"target_language": targetLanguage,
		"bytes":           len(content),
	}).Info("Created translation job")

	if q.processor != nil {
		go q.processor.ProcessJob(job)
	}

	return jobID, nil
}

// admitLocked makes room for one more job, evicting the oldest finished
// jobs when the store is full. Callers hold jobsMu.
func (q *JobQueue) admitLocked() error {
	active := 0
	var finished []JobSnapshot
	for _, job := range q.jobs {
		snap := job.Snapshot()
		if snap.Done() {
			finished = append(finished, snap)
		} else {
			active++
		}
	}

	if active >= q.maxActive {
		return fmt.Errorf("%w: %d jobs in progress", ErrQueueFull, active)
	}

	excess := len(q.jobs) - q.maxStored + 1
	if excess <= 0 {
		return nil
	}
	if excess > len(finished) {
		return fmt.Errorf("%w: %d jobs stored", ErrQueueFull, len(q.jobs))
	}

	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CompletedAt.Before(*finished[j].CompletedAt)
	})
	for _, snap := range finished[:excess] {
		delete(q.jobs, snap.ID)
	}

	q.logger.WithFields(logrus.Fields{
		"evicted":   excess,
		"remaining": len(q.jobs),
	}).Debug("Evicted finished jobs to admit a new one")

	return nil
}

// GetJob retrieves a job by ID.
func (q *JobQueue) GetJob(jobID string) (*TranslationJob, error) {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	return job, nil
}

// Len returns the number of stored jobs.
func (q *JobQueue) Len() int {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	return len(q.jobs)
}

// UpdateStatus updates the status of a job.
func (j *TranslationJob) UpdateStatus(status TranslationJobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status = status
	j.progressMessage = message

	now := time.Now()
	switch status {
	case JobStatusProcessing:
		if j.startedAt == nil {
			j.startedAt = &now
		}
	case JobStatusCompleted, JobStatusFailed:
		if j.completedAt == nil {
			j.completedAt = &now
		}
	}
}

// UpdateProgress updates the progress of a job.
func (j *TranslationJob) UpdateProgress(percent int32, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.progressPercent = percent
	j.progressMessage = message
}

// SetError marks the job failed and releases its content.
func (j *TranslationJob) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.err = err
	j.status = JobStatusFailed
	j.progressMessage = "Translation failed"
	j.content = nil
	now := time.Now()
	j.completedAt = &now
}

// SetResult marks the job completed and releases its content.
func (j *TranslationJob) SetResult(result *UploadResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.result = result
	j.status = JobStatusCompleted
	j.content = nil
	now := time.Now()
	j.completedAt = &now
	j.progressPercent = 100
	j.progressMessage = "Translation completed"
}

// Content returns the uploaded bytes while the job is pending.
func (j *TranslationJob) Content() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.content
}

// Snapshot returns a copy of the job state.
func (j *TranslationJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JobSnapshot{
		ID:              j.ID,
		FileName:        j.FileName,
		TargetLanguage:  j.TargetLanguage,
		Status:          j.status,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.startedAt,
		CompletedAt:     j.completedAt,
		Err:             j.err,
		Result:          j.result,
		ProgressPercent: j.progressPercent,
		ProgressMessage: j.progressMessage,
	}
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (q *JobQueue) CleanupOldJobs(maxAge time.Duration) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	now := time.Now()
	removed := 0

	for id, job := range q.jobs {
		snap := job.Snapshot()
		if !snap.Done() || snap.CompletedAt == nil {
			continue
		}
		if now.Sub(*snap.CompletedAt) > maxAge {
			delete(q.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(q.jobs),
		}).Info("Cleaned up old translation jobs")
	}
}
