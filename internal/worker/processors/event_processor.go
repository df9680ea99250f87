package processors

import (
	"context"

	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/queue"
	"shopcsv/internal/report"
	"shopcsv/internal/worker/processors/export"
	"shopcsv/internal/worker/processors/validation"
)

type EventProcessor struct {
	config    *config.Config
	logger    *logger.Logger
	validator *validation.Validator
	exporter  *export.Exporter
}

func NewEventProcessor(cfg *config.Config, logger *logger.Logger, db *database.Database, generator *report.Generator) *EventProcessor {
	return &EventProcessor{
		config:    cfg,
		logger:    logger,
		validator: validation.New(logger),
		exporter:  export.New(cfg, logger, db, generator),
	}
}

func (ep *EventProcessor) Process(ctx context.Context, event queue.Event) error {
	if err := ep.validator.ValidateEvent(event); err != nil {
		return err
	}

	switch event.Type {
	case queue.EventReportRequested:
		return ep.exporter.Export(ctx, event.JobID, event.StoreID)
	default:
		ep.logger.Debug("Ignoring event type %s", event.Type)
		return nil
	}
}
