package export

import (
	"context"
	"errors"
	"fmt"

	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/models"
	"shopcsv/internal/queue"
	"shopcsv/internal/report"
	"shopcsv/internal/services/shopify"
)

// Exporter runs a queued report job and stores its outcome on the job row.
type Exporter struct {
	config    *config.Config
	logger    *logger.Logger
	db        *database.Database
	generator *report.Generator
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, generator *report.Generator) *Exporter {
	return &Exporter{
		config:    cfg,
		logger:    logger,
		db:        db,
		generator: generator,
	}
}

// Export generates the CSV for a job. Jobs that already finished are left
// alone so a redelivered message does not run the report twice.
//
// Errors wrapping queue.ErrRedeliver mean the job row does not reflect the
// outcome yet, e.g. the run was interrupted or the database was unavailable.
// Every other error has been recorded on the job as FAILED.
func (e *Exporter) Export(ctx context.Context, jobID, storeID string) error {
	log := e.logger.With("job_id", jobID)

	job, err := e.db.FindReportJob(jobID)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if err != nil {
		return queue.Redeliver(fmt.Errorf("load job %s: %w", jobID, err))
	}
	if job.Finished() {
		log.Info("Report job already %s, skipping", job.Status)
		return nil
	}
	if job.StoreID != storeID {
		return e.fail(log, jobID, fmt.Errorf("job belongs to store %s, event names %s", job.StoreID, storeID))
	}

	store, err := e.db.FindStore(job.StoreID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && store.Status != models.StoreStatusActive) {
		return e.fail(log, jobID, fmt.Errorf("%w: store %s is not installed", report.ErrAuthentication, job.StoreID))
	}
	if err != nil {
		return queue.Redeliver(fmt.Errorf("load store %s: %w", job.StoreID, err))
	}

	if err := e.db.MarkReportJobRunning(jobID); err != nil {
		return queue.Redeliver(err)
	}
	log.Info("Generating order report for %s", store.ShopDomain)

	session := shopify.NewSession(store.ShopDomain, store.AccessToken, e.config.APIVersion)
	result, err := e.generator.Generate(ctx, session)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Report job interrupted: %v", err)
			return queue.Redeliver(err)
		}
		return e.fail(log, jobID, err)
	}

	if err := e.db.MarkReportJobCompleted(jobID, result.CSV, result.Rows); err != nil {
		return queue.Redeliver(err)
	}
	log.Info("Report job completed with %d rows", result.Rows)
	return nil
}

func (e *Exporter) fail(log *logger.Logger, jobID string, cause error) error {
	log.Error("Report job failed: %v", cause)
	if err := e.db.MarkReportJobFailed(jobID, cause); err != nil {
		return queue.Redeliver(fmt.Errorf("record failure of job %s: %w", jobID, err))
	}
	return cause
}
