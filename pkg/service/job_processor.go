package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultJobTimeout bounds one asynchronous job.
const DefaultJobTimeout = 5 * time.Minute

// JobProcessor processes translation jobs asynchronously.
type JobProcessor struct {
	service *TranslationService
	logger  *logrus.Logger
	timeout time.Duration
}

// NewJobProcessor creates a new job processor.
func NewJobProcessor(service *TranslationService, timeout time.Duration, logger *logrus.Logger) *JobProcessor {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &JobProcessor{
		service: service,
		logger:  logger,
		timeout: timeout,
	}
}

// ProcessJob runs the upload pipeline for a job and records the outcome.
func (p *JobProcessor) ProcessJob(job *TranslationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	startTime := time.Now()

	p.logger.WithFields(logrus.Fields{
		"job_id":          job.ID,
		"target_language": job.TargetLanguage,
	}).Info("Starting translation job processing")

	job.UpdateStatus(JobStatusProcessing, "Starting translation...")
	job.UpdateProgress(10, "Translating segments...")

	result, err := p.service.TranslateUpload(ctx, job.Content(), job.TargetLanguage)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"job_id": job.ID,
		}).Error("Translation job failed")
		job.SetError(err)
		return
	}

	job.SetResult(result)

	p.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"segments":    len(result.Segments),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Translation job completed successfully")
}
